package loader

import (
	"fmt"
	"os"

	"netpanel/internal/codec"
	"netpanel/internal/domain"
)

// LoadInventory reads the machine inventory seed file. format is "yaml"
// (default) or "ansible".
func LoadInventory(path, format string) ([]domain.Machine, error) {
	c, err := codec.InventoryForFormat(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	machines, err := c.ParseInventory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return machines, nil
}

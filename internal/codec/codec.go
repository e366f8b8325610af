package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"netpanel/internal/domain"
)

// Importer reads presets and snapshots from a document format
type Importer interface {
	ParsePreset(r io.Reader) (*domain.Preset, error)
	ParseSnapshot(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter writes presets and snapshots in a document format
type Exporter interface {
	ExportPreset(p *domain.Preset, w io.Writer) error
	ExportSnapshot(s *domain.Snapshot, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter
type Codec interface {
	Importer
	Exporter
}

// InventoryImporter reads a machine inventory
type InventoryImporter interface {
	ParseInventory(r io.Reader) ([]domain.Machine, error)
	Format() string
}

// InventoryExporter writes a machine inventory
type InventoryExporter interface {
	ExportInventory(machines []domain.Machine, w io.Writer) error
	Format() string
}

// InventoryCodec reads and writes machine inventories
type InventoryCodec interface {
	InventoryImporter
	InventoryExporter
}

// ForFormat returns the document codec for a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ForPath picks the document codec from a file extension
func ForPath(path string) (Codec, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONCodec(), true
	case ".yaml", ".yml":
		return NewYAMLCodec(), true
	default:
		return nil, false
	}
}

// InventoryForFormat returns the inventory codec for a format name
func InventoryForFormat(format string) (InventoryCodec, error) {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		return NewYAMLCodec(), nil
	case "ansible", "ansible-inventory":
		return NewAnsibleCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported inventory format %q", format)
	}
}

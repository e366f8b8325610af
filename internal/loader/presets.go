// Package loader reads presets and the machine inventory from disk.
package loader

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"netpanel/internal/codec"
	"netpanel/internal/domain"
)

// presetNamespace seeds the uuids of presets whose file has none
var presetNamespace = uuid.MustParse("a3d9c2b0-5f4e-5c1a-8e7d-2b6f0c9a1d3e")

// PresetUUID returns the stable uuid assigned to a preset file lacking one
func PresetUUID(filename string) string {
	return uuid.NewSHA1(presetNamespace, []byte(filename)).String()
}

// LoadPreset reads a single preset file. The format follows the extension.
func LoadPreset(path string) (*domain.Preset, error) {
	c, ok := codec.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported preset file %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	p, err := c.ParsePreset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Base(path)
	if p.UUID == "" {
		p.UUID = PresetUUID(base)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return p, nil
}

// LoadPresetDir reads every JSON and YAML preset in dir, sorted by name.
// Files that fail to load are skipped; their errors are joined into the
// returned error alongside the presets that did load.
func LoadPresetDir(dir string) ([]*domain.Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	var (
		presets []*domain.Preset
		errs    []error
	)
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, ok := codec.ForPath(path); !ok {
			continue
		}

		p, err := LoadPreset(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if other, dup := seen[p.UUID]; dup {
			errs = append(errs, fmt.Errorf("%s: uuid %s already used by %s", path, p.UUID, other))
			continue
		}
		seen[p.UUID] = path
		presets = append(presets, p)
	}

	sort.SliceStable(presets, func(i, j int) bool {
		if presets[i].Name != presets[j].Name {
			return presets[i].Name < presets[j].Name
		}
		return presets[i].UUID < presets[j].UUID
	})

	log.Printf("Loaded %d presets from %s", len(presets), dir)
	return presets, errors.Join(errs...)
}

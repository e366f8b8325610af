package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"netpanel/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ParsePreset imports a preset from JSON. Variable order follows the
// document.
func (c *JSONCodec) ParsePreset(r io.Reader) (*domain.Preset, error) {
	var p domain.Preset
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &p, nil
}

// ParseSnapshot imports a snapshot from JSON
func (c *JSONCodec) ParseSnapshot(r io.Reader) (*domain.Snapshot, error) {
	var s domain.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	for i, n := range s.Nodes {
		s.Nodes[i] = n.Normalize()
	}
	if s.Intnets == nil {
		s.Intnets = make(domain.IntnetConfig)
	}
	return &s, nil
}

// ExportPreset exports a preset to JSON
func (c *JSONCodec) ExportPreset(p *domain.Preset, w io.Writer) error {
	return c.encode(p, w)
}

// ExportSnapshot exports a snapshot to JSON
func (c *JSONCodec) ExportSnapshot(s *domain.Snapshot, w io.Writer) error {
	return c.encode(s, w)
}

func (c *JSONCodec) encode(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

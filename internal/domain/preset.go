package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Variable is one named preset expression
type Variable struct {
	Name       string
	Expression string
}

// Variables is an ordered list of preset variables. Order matters: each
// expression may only reference variables defined before it, so the JSON
// object form keeps document order instead of decoding into a map.
type Variables []Variable

// MarshalJSON writes the variables as a JSON object in order
func (v Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, variable := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(variable.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(variable.Expression)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Values may be
// strings or bare numbers/booleans, which are kept as expression text.
func (v *Variables) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("variables: expected object, got %v", tok)
	}

	var out Variables
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("variables: expected key, got %v", tok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("variables: %s: %w", name, err)
		}
		expr, err := expressionText(raw)
		if err != nil {
			return fmt.Errorf("variables: %s: %w", name, err)
		}
		if seen[name] {
			return fmt.Errorf("variables: duplicate variable %q", name)
		}
		seen[name] = true
		out = append(out, Variable{Name: name, Expression: expr})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*v = out
	return nil
}

func expressionText(raw any) (string, error) {
	switch val := raw.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("expression must be a string, got %T", raw)
	}
}

// CustomFunction is a user-defined preset function
type CustomFunction struct {
	Expression string   `json:"expression" yaml:"expression"`
	Arguments  []string `json:"arguments" yaml:"arguments"`
}

// CoreFunctions are the three formulas that place machines
type CoreFunctions struct {
	GetIntnet string `json:"getIntnet" yaml:"getIntnet"`
	GetPosX   string `json:"getPosX" yaml:"getPosX"`
	GetPosY   string `json:"getPosY" yaml:"getPosY"`
}

// Preset is an author-provided formula program that synthesizes a topology
// from the machine list
type Preset struct {
	UUID            string                    `json:"uuid"`
	Name            string                    `json:"name"`
	Description     string                    `json:"description,omitempty"`
	Variables       Variables                 `json:"variables"`
	CustomFunctions map[string]CustomFunction `json:"customFunctions,omitempty"`
	CoreFunctions   CoreFunctions             `json:"coreFunctions"`
}

// PresetSummary is the listing form of a preset
type PresetSummary struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Summary returns the listing form of the preset
func (p *Preset) Summary() PresetSummary {
	return PresetSummary{UUID: p.UUID, Name: p.Name, Description: p.Description}
}

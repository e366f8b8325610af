package codec

import (
	"fmt"
	"io"
	"strings"
	"time"

	"netpanel/internal/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// inventoryNamespace seeds the uuids of machines generated from groups
var inventoryNamespace = uuid.MustParse("6f1c1f1e-3c2b-5a8e-9d4e-8b7a6c5d4e3f")

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ============================================================================
// Presets
// ============================================================================

// yamlPreset represents the YAML structure for a preset. Variables stay a
// raw node so their document order survives decoding.
type yamlPreset struct {
	UUID            string                           `yaml:"uuid,omitempty"`
	Name            string                           `yaml:"name"`
	Description     string                           `yaml:"description,omitempty"`
	Variables       yaml.Node                        `yaml:"variables,omitempty"`
	CustomFunctions map[string]domain.CustomFunction `yaml:"customFunctions,omitempty"`
	CoreFunctions   domain.CoreFunctions             `yaml:"coreFunctions"`
}

// ParsePreset imports a preset from YAML
func (c *YAMLCodec) ParsePreset(r io.Reader) (*domain.Preset, error) {
	var yp yamlPreset
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yp); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	vars, err := decodeVariables(&yp.Variables)
	if err != nil {
		return nil, err
	}

	return &domain.Preset{
		UUID:            yp.UUID,
		Name:            yp.Name,
		Description:     yp.Description,
		Variables:       vars,
		CustomFunctions: yp.CustomFunctions,
		CoreFunctions:   yp.CoreFunctions,
	}, nil
}

func decodeVariables(node *yaml.Node) (domain.Variables, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("variables: line %d: expected a mapping", node.Line)
	}

	vars := make(domain.Variables, 0, len(node.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("variables: %s: line %d: expression must be a scalar", key.Value, val.Line)
		}
		if seen[key.Value] {
			return nil, fmt.Errorf("variables: duplicate variable %q", key.Value)
		}
		seen[key.Value] = true
		vars = append(vars, domain.Variable{Name: key.Value, Expression: val.Value})
	}
	return vars, nil
}

func encodeVariables(vars domain.Variables) yaml.Node {
	node := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, v := range vars {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Expression},
		)
	}
	return node
}

// ExportPreset exports a preset to YAML
func (c *YAMLCodec) ExportPreset(p *domain.Preset, w io.Writer) error {
	yp := yamlPreset{
		UUID:            p.UUID,
		Name:            p.Name,
		Description:     p.Description,
		Variables:       encodeVariables(p.Variables),
		CustomFunctions: p.CustomFunctions,
		CoreFunctions:   p.CoreFunctions,
	}
	return c.encode(&yp, w)
}

// ============================================================================
// Snapshots
// ============================================================================

type yamlSnapshot struct {
	UUID      string           `yaml:"uuid,omitempty"`
	Name      string           `yaml:"name"`
	Deletable bool             `yaml:"deletable"`
	Nodes     []yamlNode       `yaml:"nodes"`
	Intnets   []yamlIntnet     `yaml:"intnets"`
	Viewport  *domain.Viewport `yaml:"viewport,omitempty"`
	CreatedAt time.Time        `yaml:"created_at,omitempty"`
}

type yamlNode struct {
	ID     string  `yaml:"id"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Intnet int     `yaml:"intnet,omitempty"`
	Label  string  `yaml:"label,omitempty"`
	Group  string  `yaml:"group,omitempty"`
}

type yamlIntnet struct {
	UUID     string   `yaml:"uuid"`
	Number   int      `yaml:"number,omitempty"`
	Machines []string `yaml:"machines,flow"`
}

// ParseSnapshot imports a snapshot from YAML
func (c *YAMLCodec) ParseSnapshot(r io.Reader) (*domain.Snapshot, error) {
	var ys yamlSnapshot
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&ys); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s := &domain.Snapshot{
		UUID:      ys.UUID,
		Name:      ys.Name,
		Deletable: ys.Deletable,
		Nodes:     make([]domain.Node, 0, len(ys.Nodes)),
		Intnets:   make(domain.IntnetConfig, len(ys.Intnets)),
		Viewport:  ys.Viewport,
		CreatedAt: ys.CreatedAt,
	}

	for _, yn := range ys.Nodes {
		id, err := domain.ParseNodeID(yn.ID)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", yn.ID, err)
		}
		node := domain.Node{
			ID:       id,
			Position: domain.Position{X: yn.X, Y: yn.Y},
			Data:     domain.NodeData{Label: yn.Label, Group: yn.Group},
			Intnet:   yn.Intnet,
		}
		s.Nodes = append(s.Nodes, node.Normalize())
	}

	for _, yi := range ys.Intnets {
		machines := yi.Machines
		if machines == nil {
			machines = []string{}
		}
		s.Intnets[yi.UUID] = domain.IntnetEntry{UUID: yi.UUID, Number: yi.Number, Machines: machines}
	}

	return s, nil
}

// ExportSnapshot exports a snapshot to YAML
func (c *YAMLCodec) ExportSnapshot(s *domain.Snapshot, w io.Writer) error {
	ys := yamlSnapshot{
		UUID:      s.UUID,
		Name:      s.Name,
		Deletable: s.Deletable,
		Nodes:     make([]yamlNode, 0, len(s.Nodes)),
		Intnets:   make([]yamlIntnet, 0, len(s.Intnets)),
		Viewport:  s.Viewport,
		CreatedAt: s.CreatedAt,
	}

	for _, n := range s.Nodes {
		ys.Nodes = append(ys.Nodes, yamlNode{
			ID:     n.ID.String(),
			X:      n.Position.X,
			Y:      n.Position.Y,
			Intnet: n.Intnet,
			Label:  n.Data.Label,
			Group:  n.Data.Group,
		})
	}

	for _, entry := range s.Intnets.Sorted() {
		ys.Intnets = append(ys.Intnets, yamlIntnet{
			UUID:     entry.UUID,
			Number:   entry.Number,
			Machines: entry.Machines,
		})
	}

	return c.encode(&ys, w)
}

// ============================================================================
// Inventory
// ============================================================================

// yamlInventory lists machines explicitly or generates them per group
type yamlInventory struct {
	Machines []domain.Machine              `yaml:"machines,omitempty"`
	Groups   map[string]yamlInventoryGroup `yaml:"groups,omitempty"`
}

// yamlInventoryGroup generates Count machines numbered from 1. Domain may
// contain {n} which is replaced by the member number.
type yamlInventoryGroup struct {
	Count    int    `yaml:"count"`
	PortBase int    `yaml:"port_base,omitempty"`
	Domain   string `yaml:"domain,omitempty"`
}

// ParseInventory imports a machine inventory from YAML. Generated machines
// get stable uuids derived from group name and member number.
func (c *YAMLCodec) ParseInventory(r io.Reader) ([]domain.Machine, error) {
	var inv yamlInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	machines := make([]domain.Machine, 0, len(inv.Machines))
	seen := make(map[string]bool)
	add := func(m domain.Machine) error {
		if m.UUID == "" {
			return fmt.Errorf("machine %q %d: missing uuid", m.Group, m.GroupMemberID)
		}
		if seen[m.UUID] {
			return fmt.Errorf("duplicate machine %s", m.UUID)
		}
		seen[m.UUID] = true
		machines = append(machines, m)
		return nil
	}

	for _, m := range inv.Machines {
		if err := add(m); err != nil {
			return nil, err
		}
	}

	for name, g := range inv.Groups {
		if g.Count < 0 {
			return nil, fmt.Errorf("group %s: negative count", name)
		}
		for n := 1; n <= g.Count; n++ {
			m := domain.Machine{
				UUID:          GroupMachineUUID(name, n),
				Group:         name,
				GroupMemberID: n,
			}
			if g.PortBase > 0 {
				m.Port = g.PortBase + n
			}
			if g.Domain != "" {
				m.Domain = strings.ReplaceAll(g.Domain, "{n}", fmt.Sprint(n))
			}
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}

	domain.SortMachines(machines)
	return machines, nil
}

// GroupMachineUUID returns the stable uuid of a generated group member
func GroupMachineUUID(group string, member int) string {
	return uuid.NewSHA1(inventoryNamespace, []byte(fmt.Sprintf("%s/%d", group, member))).String()
}

// ExportInventory exports machines as an explicit YAML list
func (c *YAMLCodec) ExportInventory(machines []domain.Machine, w io.Writer) error {
	return c.encode(&yamlInventory{Machines: machines}, w)
}

func (c *YAMLCodec) encode(v interface{}, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

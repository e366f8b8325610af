package codec

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"netpanel/internal/domain"

	"gopkg.in/yaml.v3"
)

// AnsibleCodec reads and writes the machine inventory as an Ansible YAML
// inventory. Each child group of "all" is a machine group; host vars carry
// uuid, group_member_id, port and domain.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Vars     map[string]interface{}     `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

// ParseInventory imports machines from an Ansible inventory
func (c *AnsibleCodec) ParseInventory(r io.Reader) ([]domain.Machine, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	var machines []domain.Machine
	seen := make(map[string]bool)

	// Process all groups
	for groupName, group := range inv.All.Children {
		for hostID, host := range group.Hosts {
			m, err := c.hostToMachine(hostID, groupName, host)
			if err != nil {
				return nil, err
			}
			if seen[m.UUID] {
				return nil, fmt.Errorf("duplicate machine %s", m.UUID)
			}
			seen[m.UUID] = true
			machines = append(machines, m)
		}
	}

	// Hosts directly under "all" have no group
	for hostID, host := range inv.All.Hosts {
		m, err := c.hostToMachine(hostID, "", host)
		if err != nil {
			return nil, err
		}
		if !seen[m.UUID] {
			seen[m.UUID] = true
			machines = append(machines, m)
		}
	}

	domain.SortMachines(machines)
	return machines, nil
}

// hostToMachine converts an Ansible host to a domain.Machine
func (c *AnsibleCodec) hostToMachine(hostID, groupName string, host ansibleHost) (domain.Machine, error) {
	m := domain.Machine{
		UUID:  hostID,
		Group: groupName,
	}

	if v, ok := host.Vars["uuid"].(string); ok && v != "" {
		m.UUID = v
	}
	if v, ok := host.Vars["domain"].(string); ok {
		m.Domain = v
	} else if host.AnsibleHost != "" {
		m.Domain = host.AnsibleHost
	}

	var err error
	if m.GroupMemberID, err = intVar(host.Vars, "group_member_id"); err != nil {
		return m, fmt.Errorf("host %s: %w", hostID, err)
	}
	if m.Port, err = intVar(host.Vars, "port"); err != nil {
		return m, fmt.Errorf("host %s: %w", hostID, err)
	}
	if v, ok := host.Vars["state"].(string); ok {
		m.State = domain.MachineState(v)
	}

	return m, nil
}

func intVar(vars map[string]interface{}, key string) (int, error) {
	switch v := vars[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}

// ExportInventory exports machines to Ansible inventory format
func (c *AnsibleCodec) ExportInventory(machines []domain.Machine, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	sorted := append([]domain.Machine(nil), machines...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UUID < sorted[j].UUID })

	for _, m := range sorted {
		groupName := m.Group
		if groupName == "" {
			groupName = "ungrouped"
		}

		group, ok := inv.All.Children[groupName]
		if !ok {
			group = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
		}

		host := ansibleHost{Vars: map[string]interface{}{"uuid": m.UUID}}
		if m.GroupMemberID != 0 {
			host.Vars["group_member_id"] = m.GroupMemberID
		}
		if m.Port != 0 {
			host.Vars["port"] = m.Port
		}
		if m.Domain != "" {
			host.AnsibleHost = m.Domain
		}
		if m.State != "" {
			host.Vars["state"] = string(m.State)
		}

		group.Hosts[hostName(m)] = host
		inv.All.Children[groupName] = group
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

// hostName is the inventory host key, e.g. desktop1
func hostName(m domain.Machine) string {
	if m.Group == "" || m.GroupMemberID == 0 {
		return m.UUID
	}
	return fmt.Sprintf("%s%d", m.Group, m.GroupMemberID)
}

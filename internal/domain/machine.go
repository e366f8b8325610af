package domain

import (
	"fmt"
	"sort"
)

// MachineState represents the live state reported by the hypervisor
type MachineState string

const (
	MachineStateActive  MachineState = "active"
	MachineStateLoading MachineState = "loading"
	MachineStateOffline MachineState = "offline"
)

// Machine is a virtual machine from the inventory
type Machine struct {
	UUID          string       `json:"uuid" yaml:"uuid"`
	Group         string       `json:"group,omitempty" yaml:"group,omitempty"`
	GroupMemberID int          `json:"group_member_id,omitempty" yaml:"group_member_id,omitempty"`
	Domain        string       `json:"domain,omitempty" yaml:"domain,omitempty"`
	Port          int          `json:"port,omitempty" yaml:"port,omitempty"`
	State         MachineState `json:"state,omitempty" yaml:"state,omitempty"`
}

// Label returns the user-facing machine label, e.g. "desktop 3"
func (m Machine) Label() string {
	if m.Group == "" {
		return m.UUID
	}
	return fmt.Sprintf("%s %d", m.Group, m.GroupMemberID)
}

// NodeID returns the canvas node identifier for this machine
func (m Machine) NodeID() NodeID {
	return MachineNodeID(m.UUID)
}

// SortMachines orders machines by group, group member id and uuid. The
// inventory is delivered as a JSON object, so this is the canonical order
// used wherever machine order matters (preset evaluation index i).
func SortMachines(machines []Machine) {
	sort.SliceStable(machines, func(i, j int) bool {
		a, b := machines[i], machines[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.GroupMemberID != b.GroupMemberID {
			return a.GroupMemberID < b.GroupMemberID
		}
		return a.UUID < b.UUID
	})
}

// MachinesFromMap flattens the inventory map into a sorted slice
func MachinesFromMap(inventory map[string]Machine) []Machine {
	machines := make([]Machine, 0, len(inventory))
	for id, m := range inventory {
		if m.UUID == "" {
			m.UUID = id
		}
		machines = append(machines, m)
	}
	SortMachines(machines)
	return machines
}

package domain

import "sort"

// IntnetEntry is the persisted membership of one internal network
type IntnetEntry struct {
	UUID     string   `json:"uuid"`
	Number   int      `json:"number,omitempty"`
	Machines []string `json:"machines"`
}

// IntnetConfig maps intnet uuid to its membership entry
type IntnetConfig map[string]IntnetEntry

// Add appends a machine to the intnet's membership, creating the entry
func (c IntnetConfig) Add(intnetUUID, machineUUID string) {
	entry, ok := c[intnetUUID]
	if !ok {
		entry = IntnetEntry{UUID: intnetUUID, Machines: []string{}}
	}
	entry.Machines = append(entry.Machines, machineUUID)
	c[intnetUUID] = entry
}

// MaxNumber returns the largest intnet number in the configuration
func (c IntnetConfig) MaxNumber() int {
	max := 0
	for _, entry := range c {
		if entry.Number > max {
			max = entry.Number
		}
	}
	return max
}

// Sorted returns the entries ordered by number, then uuid
func (c IntnetConfig) Sorted() []IntnetEntry {
	entries := make([]IntnetEntry, 0, len(c))
	for id, entry := range c {
		if entry.UUID == "" {
			entry.UUID = id
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Number != entries[j].Number {
			return entries[i].Number < entries[j].Number
		}
		return entries[i].UUID < entries[j].UUID
	})
	return entries
}

// WithNumbers returns a copy whose entries carry the numbers of the
// matching intnet nodes
func (c IntnetConfig) WithNumbers(nodes []Node) IntnetConfig {
	numbers := make(map[string]int)
	for _, n := range nodes {
		if n.IsIntnet() {
			numbers[n.ID.ID] = n.Intnet
		}
	}
	out := make(IntnetConfig, len(c))
	for id, entry := range c {
		if num, ok := numbers[id]; ok {
			entry.Number = num
		}
		out[id] = entry
	}
	return out
}

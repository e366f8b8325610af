package domain

import "time"

// Snapshot is a named capture of a full canvas state plus its derived
// intnet configuration. Snapshots are immutable once created except for
// rename and delete.
type Snapshot struct {
	UUID      string       `json:"uuid,omitempty"`
	Name      string       `json:"name" validate:"snapshotname"`
	Deletable bool         `json:"deletable"`
	Nodes     []Node       `json:"nodes"`
	Intnets   IntnetConfig `json:"intnets"`
	Viewport  *Viewport    `json:"viewport,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Configuration returns the snapshot contents in configuration shape
func (s *Snapshot) Configuration() *Configuration {
	return &Configuration{
		Nodes:    s.Nodes,
		Intnets:  s.Intnets,
		Viewport: s.Viewport,
	}
}

// MachineCount returns the number of machine nodes captured
func (s *Snapshot) MachineCount() int {
	count := 0
	for _, n := range s.Nodes {
		if n.IsMachine() {
			count++
		}
	}
	return count
}

// RenameRequest is the body of a snapshot rename call
type RenameRequest struct {
	Name string `json:"name" validate:"renamename"`
}

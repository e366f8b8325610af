package domain

import (
	"crypto/sha256"
	"fmt"
)

// Edge links a machine node to an intnet node
type Edge struct {
	ID       string `json:"id"`
	Source   NodeID `json:"source"`
	Target   NodeID `json:"target"`
	Selected bool   `json:"selected,omitempty"`
}

// NewEdge creates a new edge
func NewEdge(source, target NodeID) Edge {
	edge := Edge{
		Source: source,
		Target: target,
	}
	edge.ID = edge.GenerateID()
	return edge
}

// GenerateID creates a deterministic ID for the edge based on endpoints
func (e Edge) GenerateID() string {
	// Edges are unordered, normalize endpoints for a consistent ID
	from, to := e.Source.String(), e.Target.String()
	if from > to {
		from, to = to, from
	}

	key := fmt.Sprintf("%s-%s", from, to)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("xy-edge-%x", hash[:8])
}

// Connects reports whether the edge touches the given node
func (e Edge) Connects(id NodeID) bool {
	return e.Source == id || e.Target == id
}

// Endpoints resolves the machine and intnet endpoints of the edge. ok is
// false when the edge does not join exactly one machine and one intnet.
func (e Edge) Endpoints() (machine, intnet NodeID, ok bool) {
	switch {
	case e.Source.IsMachine() && e.Target.IsIntnet():
		return e.Source, e.Target, true
	case e.Source.IsIntnet() && e.Target.IsMachine():
		return e.Target, e.Source, true
	default:
		return NodeID{}, NodeID{}, false
	}
}

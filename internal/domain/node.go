package domain

import "fmt"

// NodeData holds the render payload of a node
type NodeData struct {
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

// Node is a canvas node: a machine node or an intnet node
type Node struct {
	ID       NodeID   `json:"id"`
	Type     NodeKind `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`

	// Intnet nodes only: user-facing number and persistent identity
	Intnet int    `json:"intnet,omitempty"`
	UUID   string `json:"uuid,omitempty"`

	Deletable  bool `json:"deletable"`
	Selectable bool `json:"selectable"`

	// Transient render state
	Selected bool        `json:"selected,omitempty"`
	Dragging bool        `json:"dragging,omitempty"`
	Measured *Dimensions `json:"measured,omitempty"`
}

// NewMachineNode creates the node of a machine at the given position.
// Machine nodes cannot be deleted or selected by the user.
func NewMachineNode(m Machine, pos Position) Node {
	return Node{
		ID:         m.NodeID(),
		Type:       NodeKindMachine,
		Position:   pos,
		Data:       NodeData{Label: m.Label(), Group: m.Group},
		Deletable:  false,
		Selectable: false,
	}
}

// NewIntnetNode creates an intnet node with the given number and uuid
func NewIntnetNode(number int, intnetUUID string, pos Position) Node {
	return Node{
		ID:         IntnetNodeID(intnetUUID),
		Type:       NodeKindIntnet,
		Position:   pos,
		Data:       NodeData{Label: IntnetLabel(number)},
		Intnet:     number,
		UUID:       intnetUUID,
		Deletable:  true,
		Selectable: true,
	}
}

// IntnetLabel returns the label shown on an intnet node
func IntnetLabel(number int) string {
	return fmt.Sprintf("Intnet %d", number)
}

// IsMachine reports whether the node is a machine node
func (n Node) IsMachine() bool { return n.ID.IsMachine() }

// IsIntnet reports whether the node is an intnet node
func (n Node) IsIntnet() bool { return n.ID.IsIntnet() }

// Persisted strips transient render state before the node is saved
func (n Node) Persisted() Node {
	n.Selected = false
	n.Dragging = false
	n.Measured = nil
	return n
}

// Normalize repairs fields a backend document may omit: the type is taken
// from the id kind and intnet uuid/label are filled from the id and number.
func (n Node) Normalize() Node {
	n.Type = n.ID.Kind
	if n.IsIntnet() {
		if n.UUID == "" {
			n.UUID = n.ID.ID
		}
		if n.Data.Label == "" {
			n.Data.Label = IntnetLabel(n.Intnet)
		}
		n.Deletable = true
		n.Selectable = true
	} else {
		n.Deletable = false
		n.Selectable = false
	}
	return n
}

// PositionsByID indexes node positions by node id
func PositionsByID(nodes []Node) map[NodeID]Position {
	positions := make(map[NodeID]Position, len(nodes))
	for _, n := range nodes {
		positions[n.ID] = n.Position
	}
	return positions
}

package domain

// ChangeType is the kind of change reported by the rendering collaborator
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
	ChangeReplace    ChangeType = "replace"
)

// NodeChange is one node change event. Which fields are meaningful depends
// on Type: Position/Dragging for position, Dimensions for dimensions,
// Selected for select and Item for add/replace.
type NodeChange struct {
	Type       ChangeType  `json:"type"`
	ID         NodeID      `json:"id"`
	Position   *Position   `json:"position,omitempty"`
	Dragging   bool        `json:"dragging,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Selected   bool        `json:"selected,omitempty"`
	Item       *Node       `json:"item,omitempty"`
}

// EdgeChange is one edge change event
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id"`
	Selected bool       `json:"selected,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
}

// Dirties reports whether applying the change leaves unsaved edits.
// Measurement updates are emitted by the renderer on its own and never do.
func (c NodeChange) Dirties() bool {
	return c.Type != ChangeDimensions
}

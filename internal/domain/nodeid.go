package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeKind discriminates the two kinds of canvas node
type NodeKind string

const (
	NodeKindMachine NodeKind = "machine"
	NodeKindIntnet  NodeKind = "intnet"
)

// Valid reports whether k is a known node kind
func (k NodeKind) Valid() bool {
	return k == NodeKindMachine || k == NodeKindIntnet
}

// NodeID identifies a canvas node. The kind namespaces the underlying id,
// so a machine and an intnet sharing the same uuid never collide.
type NodeID struct {
	Kind NodeKind
	ID   string
}

// MachineNodeID returns the node id of a machine
func MachineNodeID(machineUUID string) NodeID {
	return NodeID{Kind: NodeKindMachine, ID: machineUUID}
}

// IntnetNodeID returns the node id of an intnet
func IntnetNodeID(intnetUUID string) NodeID {
	return NodeID{Kind: NodeKindIntnet, ID: intnetUUID}
}

// IsMachine reports whether the id refers to a machine node
func (n NodeID) IsMachine() bool { return n.Kind == NodeKindMachine }

// IsIntnet reports whether the id refers to an intnet node
func (n NodeID) IsIntnet() bool { return n.Kind == NodeKindIntnet }

// IsZero reports whether the id is unset
func (n NodeID) IsZero() bool { return n.Kind == "" && n.ID == "" }

// String returns the wire form "<kind>-<id>"
func (n NodeID) String() string {
	return string(n.Kind) + "-" + n.ID
}

// ParseNodeID parses the wire form produced by NodeID.String. Only the first
// dash separates the kind, the remainder (usually a uuid) is kept verbatim.
func ParseNodeID(s string) (NodeID, error) {
	kind, id, ok := strings.Cut(s, "-")
	if !ok || id == "" {
		return NodeID{}, fmt.Errorf("%w: node id %q", ErrInvalid, s)
	}
	k := NodeKind(kind)
	if !k.Valid() {
		return NodeID{}, fmt.Errorf("%w: node kind %q", ErrInvalid, kind)
	}
	return NodeID{Kind: k, ID: id}, nil
}

// MarshalJSON implements json.Marshaler
func (n NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NodeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeID(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler so NodeID can key JSON maps
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (n *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

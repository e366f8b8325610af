package domain

import (
	"encoding/json"
	"testing"
)

func TestNewMachineNode(t *testing.T) {
	m := Machine{UUID: "m1", Group: "desktop", GroupMemberID: 3}
	node := NewMachineNode(m, Position{X: 10, Y: 20})

	if node.ID != MachineNodeID("m1") {
		t.Errorf("unexpected id %v", node.ID)
	}
	if node.Type != NodeKindMachine {
		t.Errorf("expected type machine, got %s", node.Type)
	}
	if node.Data.Label != "desktop 3" {
		t.Errorf("expected label 'desktop 3', got %s", node.Data.Label)
	}
	if node.Deletable || node.Selectable {
		t.Error("machine nodes must not be deletable or selectable")
	}
	if node.Position != (Position{X: 10, Y: 20}) {
		t.Errorf("unexpected position %+v", node.Position)
	}
}

func TestNewIntnetNode(t *testing.T) {
	node := NewIntnetNode(4, "i1", Position{})

	if node.ID != IntnetNodeID("i1") {
		t.Errorf("unexpected id %v", node.ID)
	}
	if node.Intnet != 4 || node.UUID != "i1" {
		t.Errorf("unexpected intnet fields %d %s", node.Intnet, node.UUID)
	}
	if node.Data.Label != "Intnet 4" {
		t.Errorf("expected label 'Intnet 4', got %s", node.Data.Label)
	}
	if !node.Deletable || !node.Selectable {
		t.Error("intnet nodes must be deletable and selectable")
	}
}

func TestMachineLabel(t *testing.T) {
	t.Run("grouped", func(t *testing.T) {
		m := Machine{UUID: "u", Group: "server", GroupMemberID: 1}
		if m.Label() != "server 1" {
			t.Errorf("unexpected label %s", m.Label())
		}
	})

	t.Run("ungrouped falls back to uuid", func(t *testing.T) {
		m := Machine{UUID: "u"}
		if m.Label() != "u" {
			t.Errorf("unexpected label %s", m.Label())
		}
	})
}

func TestNodePersisted(t *testing.T) {
	node := NewIntnetNode(1, "i", Position{})
	node.Selected = true
	node.Dragging = true
	node.Measured = &Dimensions{Width: 10, Height: 10}

	p := node.Persisted()
	if p.Selected || p.Dragging || p.Measured != nil {
		t.Errorf("transient state not stripped: %+v", p)
	}
	if !node.Selected {
		t.Error("Persisted must not modify the receiver")
	}
}

func TestNodeNormalize(t *testing.T) {
	t.Run("fills intnet fields from id", func(t *testing.T) {
		node := Node{ID: IntnetNodeID("abc"), Intnet: 2}
		n := node.Normalize()
		if n.Type != NodeKindIntnet || n.UUID != "abc" || n.Data.Label != "Intnet 2" {
			t.Errorf("unexpected node %+v", n)
		}
		if !n.Deletable || !n.Selectable {
			t.Error("expected intnet flags")
		}
	})

	t.Run("machine flags forced off", func(t *testing.T) {
		node := Node{ID: MachineNodeID("m"), Deletable: true, Selectable: true}
		n := node.Normalize()
		if n.Deletable || n.Selectable {
			t.Error("expected machine flags off")
		}
	})
}

func TestNodeJSON(t *testing.T) {
	data := []byte(`{"id":"intnet-i1","type":"intnet","position":{"x":1,"y":2},"data":{"label":"Intnet 7"},"intnet":7,"uuid":"i1","deletable":true,"selectable":true}`)

	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.ID != IntnetNodeID("i1") || node.Intnet != 7 {
		t.Errorf("unexpected node %+v", node)
	}
	if node.Position != (Position{X: 1, Y: 2}) {
		t.Errorf("unexpected position %+v", node.Position)
	}
}

func TestMachinesFromMap(t *testing.T) {
	inv := map[string]Machine{
		"c": {Group: "server", GroupMemberID: 1},
		"a": {Group: "desktop", GroupMemberID: 2},
		"b": {Group: "desktop", GroupMemberID: 1},
	}
	machines := MachinesFromMap(inv)

	want := []string{"b", "a", "c"}
	if len(machines) != len(want) {
		t.Fatalf("expected %d machines, got %d", len(want), len(machines))
	}
	for i, id := range want {
		if machines[i].UUID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, machines[i].UUID)
		}
	}
}

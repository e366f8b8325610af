package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"netpanel/internal/domain"
)

func testPreset() *domain.Preset {
	return &domain.Preset{
		UUID:        "p1",
		Name:        "Star",
		Description: "every machine on one intnet",
		Variables: domain.Variables{
			{Name: "radius", Expression: "machineCount * 40"},
			{Name: "angle", Expression: "2 * PI / machineCount"},
			{Name: "hub", Expression: "1"},
		},
		CustomFunctions: map[string]domain.CustomFunction{
			"polar": {Expression: "radius * cos(angle * k)", Arguments: []string{"k"}},
		},
		CoreFunctions: domain.CoreFunctions{
			GetIntnet: "hub",
			GetPosX:   "polar(i)",
			GetPosY:   "radius * sin(angle * i)",
		},
	}
}

func testSnapshot() *domain.Snapshot {
	vp := domain.Viewport{X: 10, Y: -5, Zoom: 0.75}
	return &domain.Snapshot{
		UUID:      "s1",
		Name:      "lab-1",
		Deletable: true,
		Nodes: []domain.Node{
			domain.NewMachineNode(domain.Machine{UUID: "m1", Group: "desktop", GroupMemberID: 1}, domain.Position{X: 1, Y: 2}),
			domain.NewIntnetNode(3, "i3", domain.Position{X: 4.5, Y: 6}),
		},
		Intnets: domain.IntnetConfig{
			"i3": {UUID: "i3", Number: 3, Machines: []string{"m1"}},
		},
		Viewport:  &vp,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
		ok     bool
	}{
		{"presets/star.json", "json", true},
		{"presets/star.yaml", "yaml", true},
		{"presets/STAR.YML", "yaml", true},
		{"presets/readme.md", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, ok := ForPath(tt.path)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && c.Format() != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, c.Format())
			}
		})
	}
}

func TestForFormat(t *testing.T) {
	if _, err := ForFormat("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
	c, err := InventoryForFormat("ansible")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Format() != "ansible-inventory" {
		t.Errorf("unexpected format %s", c.Format())
	}
}

func TestPresetRoundTrip(t *testing.T) {
	for _, c := range []Codec{NewJSONCodec(), NewYAMLCodec()} {
		t.Run(c.Format(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := c.ExportPreset(testPreset(), &buf); err != nil {
				t.Fatalf("export: %v", err)
			}

			got, err := c.ParsePreset(&buf)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(testPreset(), got) {
				t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", testPreset(), got)
			}
		})
	}
}

func TestParseYAMLPresetKeepsVariableOrder(t *testing.T) {
	doc := `
name: Pairs
variables:
  z: 2
  a: z * 8
  m: a + z
coreFunctions:
  getIntnet: floor(i / 2) + 1
  getPosX: i * 100
  getPosY: "0"
`
	p, err := NewYAMLCodec().ParsePreset(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := domain.Variables{
		{Name: "z", Expression: "2"},
		{Name: "a", Expression: "z * 8"},
		{Name: "m", Expression: "a + z"},
	}
	if !reflect.DeepEqual(want, p.Variables) {
		t.Errorf("expected %v, got %v", want, p.Variables)
	}
	if p.CoreFunctions.GetIntnet != "floor(i / 2) + 1" {
		t.Errorf("unexpected getIntnet %q", p.CoreFunctions.GetIntnet)
	}
}

func TestParseYAMLPresetErrors(t *testing.T) {
	tests := map[string]string{
		"nested variable":    "variables:\n  a:\n    b: 1\n",
		"duplicate variable": "variables:\n  a: 1\n  a: 2\n",
		"sequence variables": "variables:\n  - a\n",
		"malformed":          "variables: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewYAMLCodec().ParsePreset(strings.NewReader(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, c := range []Codec{NewJSONCodec(), NewYAMLCodec()} {
		t.Run(c.Format(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := c.ExportSnapshot(testSnapshot(), &buf); err != nil {
				t.Fatalf("export: %v", err)
			}

			got, err := c.ParseSnapshot(&buf)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			want := testSnapshot()
			if !reflect.DeepEqual(want.Nodes, got.Nodes) {
				t.Errorf("nodes mismatch:\nwant %+v\ngot  %+v", want.Nodes, got.Nodes)
			}
			if !reflect.DeepEqual(want.Intnets, got.Intnets) {
				t.Errorf("intnets mismatch: want %v, got %v", want.Intnets, got.Intnets)
			}
			if *want.Viewport != *got.Viewport {
				t.Errorf("viewport mismatch: want %v, got %v", *want.Viewport, *got.Viewport)
			}
			if !want.CreatedAt.Equal(got.CreatedAt) {
				t.Errorf("created_at mismatch: want %v, got %v", want.CreatedAt, got.CreatedAt)
			}
		})
	}
}

func TestParseYAMLSnapshotRejectsBadNodeID(t *testing.T) {
	doc := "name: x\nnodes:\n  - id: router-1\n"
	if _, err := NewYAMLCodec().ParseSnapshot(strings.NewReader(doc)); err == nil {
		t.Error("expected error for unknown node id prefix")
	}
}

func TestParseYAMLInventory(t *testing.T) {
	doc := `
machines:
  - uuid: b38350cf
    group: server
    group_member_id: 1
    port: 1501
groups:
  desktop:
    count: 2
    port_base: 1000
    domain: "desktop{n}.example.org"
`
	machines, err := NewYAMLCodec().ParseInventory(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(machines) != 3 {
		t.Fatalf("expected 3 machines, got %d", len(machines))
	}

	first := machines[0]
	if first.Group != "desktop" || first.GroupMemberID != 1 {
		t.Errorf("expected desktop 1 first, got %s %d", first.Group, first.GroupMemberID)
	}
	if first.Port != 1001 || first.Domain != "desktop1.example.org" {
		t.Errorf("unexpected generated fields: %+v", first)
	}
	if first.UUID != GroupMachineUUID("desktop", 1) {
		t.Errorf("generated uuid is not stable: %s", first.UUID)
	}
	if machines[2].UUID != "b38350cf" {
		t.Errorf("expected explicit machine last, got %s", machines[2].UUID)
	}

	t.Run("duplicate uuid", func(t *testing.T) {
		doc := "machines:\n  - uuid: a\n  - uuid: a\n"
		if _, err := NewYAMLCodec().ParseInventory(strings.NewReader(doc)); err == nil {
			t.Error("expected duplicate error")
		}
	})
}

func TestAnsibleInventoryRoundTrip(t *testing.T) {
	machines := []domain.Machine{
		{UUID: "d1", Group: "desktop", GroupMemberID: 1, Port: 1001, Domain: "desktop1.example.org"},
		{UUID: "d2", Group: "desktop", GroupMemberID: 2, State: domain.MachineStateActive},
		{UUID: "s1", Group: "server", GroupMemberID: 1},
	}

	c := NewAnsibleCodec()
	var buf bytes.Buffer
	if err := c.ExportInventory(machines, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "desktop1:") {
		t.Errorf("expected host key desktop1 in:\n%s", buf.String())
	}

	got, err := c.ParseInventory(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(machines, got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", machines, got)
	}
}

func TestParseAnsibleInventory(t *testing.T) {
	doc := `
all:
  hosts:
    jumpbox:
      ansible_host: 10.0.0.1
  children:
    desktop:
      hosts:
        desktop1:
          uuid: 280af110
          group_member_id: "1"
          port: 1001
`
	machines, err := NewAnsibleCodec().ParseInventory(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(machines) != 2 {
		t.Fatalf("expected 2 machines, got %d", len(machines))
	}

	// ungrouped machines sort first
	if machines[0].UUID != "jumpbox" || machines[0].Domain != "10.0.0.1" {
		t.Errorf("unexpected ungrouped machine: %+v", machines[0])
	}
	if machines[1].UUID != "280af110" || machines[1].GroupMemberID != 1 || machines[1].Port != 1001 {
		t.Errorf("unexpected desktop machine: %+v", machines[1])
	}

	t.Run("bad member id", func(t *testing.T) {
		doc := "all:\n  children:\n    g:\n      hosts:\n        h:\n          group_member_id: one\n"
		if _, err := NewAnsibleCodec().ParseInventory(strings.NewReader(doc)); err == nil {
			t.Error("expected error")
		}
	})
}

package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netpanel/internal/domain"
)

func TestDeriveIntnetConfig(t *testing.T) {
	m := domain.MachineNodeID
	i := domain.IntnetNodeID

	edges := []domain.Edge{
		domain.NewEdge(m("m1"), i("i1")),
		domain.NewEdge(m("m2"), i("i1")),
		domain.NewEdge(m("m3"), i("i2")),
	}

	config := DeriveIntnetConfig(edges)
	require.Len(t, config, 2)
	assert.Equal(t, domain.IntnetEntry{UUID: "i1", Machines: []string{"m1", "m2"}}, config["i1"])
	assert.Equal(t, domain.IntnetEntry{UUID: "i2", Machines: []string{"m3"}}, config["i2"])
}

func TestDeriveIntnetConfigEdgeCases(t *testing.T) {
	m := domain.MachineNodeID
	i := domain.IntnetNodeID

	t.Run("empty", func(t *testing.T) {
		config := DeriveIntnetConfig(nil)
		assert.NotNil(t, config)
		assert.Empty(t, config)
	})

	t.Run("reversed edge", func(t *testing.T) {
		config := DeriveIntnetConfig([]domain.Edge{domain.NewEdge(i("i1"), m("m1"))})
		assert.Equal(t, []string{"m1"}, config["i1"].Machines)
	})

	t.Run("malformed edges skipped", func(t *testing.T) {
		config := DeriveIntnetConfig([]domain.Edge{
			domain.NewEdge(m("m1"), m("m2")),
			domain.NewEdge(i("i1"), i("i2")),
		})
		assert.Empty(t, config)
	})

	t.Run("duplicates kept", func(t *testing.T) {
		e := domain.NewEdge(m("m1"), i("i1"))
		config := DeriveIntnetConfig([]domain.Edge{e, e})
		assert.Equal(t, []string{"m1", "m1"}, config["i1"].Machines)
	})
}

func TestEdgesFromConfig(t *testing.T) {
	nodes := []domain.Node{
		machineNode("m1", 0, 0),
		machineNode("m2", 0, 0),
		domain.NewIntnetNode(1, "i1", domain.Position{}),
	}
	config := domain.IntnetConfig{
		"i1": {UUID: "i1", Number: 1, Machines: []string{"m1", "m2", "gone"}},
		"i9": {UUID: "i9", Number: 9, Machines: []string{"m1"}},
	}

	edges := EdgesFromConfig(config, nodes)
	require.Len(t, edges, 2)

	derived := DeriveIntnetConfig(edges)
	assert.Equal(t, []string{"m1", "m2"}, derived["i1"].Machines)
	_, ok := derived["i9"]
	assert.False(t, ok)
}

package topology

import "netpanel/internal/domain"

// DeriveIntnetConfig folds edges into the persisted membership shape. Edge
// order is membership order. Edges that do not join a machine to an intnet
// are skipped; duplicates are not removed.
func DeriveIntnetConfig(edges []domain.Edge) domain.IntnetConfig {
	config := make(domain.IntnetConfig)
	for _, e := range edges {
		machine, intnet, ok := e.Endpoints()
		if !ok {
			continue
		}
		config.Add(intnet.ID, machine.ID)
	}
	return config
}

// EdgesFromConfig rebuilds the canvas edges of a membership configuration.
// Only edges whose endpoints are both in nodes are returned. Entries are
// visited in number order so the result is stable.
func EdgesFromConfig(config domain.IntnetConfig, nodes []domain.Node) []domain.Edge {
	present := make(map[domain.NodeID]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	var edges []domain.Edge
	for _, entry := range config.Sorted() {
		intnet := domain.IntnetNodeID(entry.UUID)
		if !present[intnet] {
			continue
		}
		for _, machineUUID := range entry.Machines {
			machine := domain.MachineNodeID(machineUUID)
			if !present[machine] {
				continue
			}
			edges = append(edges, domain.NewEdge(machine, intnet))
		}
	}
	return edges
}

// Package domain defines the core domain types for the netpanel network
// topology editor.
//
// This package contains the entities and value objects shared by the editor
// core (topology, formula, preset, session) and the backend that persists its
// output (repository, service, handler).
//
// # Core Types
//
// Machine is a virtual machine from the hypervisor inventory. Machines are
// read-only from the editor's point of view.
//
// Node is a canvas node: either a machine node referencing exactly one
// Machine, or an intnet node representing one internal network. Nodes are
// identified by NodeID, a kind-tagged identifier whose string form
// ("machine-<uuid>", "intnet-<uuid>") is only produced and parsed here.
//
// Edge links a machine node to an intnet node.
//
// IntnetConfig is the normalized "which machines belong to which intnet"
// shape persisted by the backend and derived from edges.
//
// # Persistence Shapes
//
// PanelState (nodes + viewport), Configuration (nodes + intnets + viewport)
// and Snapshot (a named capture of both) are the JSON documents exchanged
// with the backend.
//
// # Presets
//
// Preset is an author-provided formula program (ordered variables, custom
// functions, three core functions) evaluated against the machine list to
// synthesize a topology.
//
// # Design Principles
//
// - Value types, no database or transport dependencies
// - Wire formats are confined to MarshalJSON/UnmarshalJSON implementations
// - Sentinel errors shared by client and server so errors.Is works end to end
package domain

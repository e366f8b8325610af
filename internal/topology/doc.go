// Package topology holds the editor's graph state: the intnet number
// allocator, the node/edge store with its connection rules, and the
// derivation of intnet membership from edges.
//
// Machines are only ever connected through intnets. The store enforces this
// in OnConnect rather than at storage time, so change events replayed from
// the renderer are applied as reported.
package topology

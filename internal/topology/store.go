package topology

import (
	"github.com/google/uuid"

	"netpanel/internal/domain"
)

// Store is the in-memory graph behind the editor canvas: machine nodes,
// intnet nodes and the machine-intnet edges between them. It is the only
// place nodes and edges are mutated.
//
// A Store is not safe for concurrent use. The session serializes access.
type Store struct {
	nodes []domain.Node
	index map[domain.NodeID]int
	edges []domain.Edge

	alloc    *Allocator
	newID    func() string
	onMutate func()
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithIDGenerator sets the function producing uuids for synthesized intnets
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithMutationHook registers a function called after every change that
// leaves unsaved edits behind
func WithMutationHook(fn func()) StoreOption {
	return func(s *Store) {
		s.onMutate = fn
	}
}

// NewStore creates an empty store owning the given allocator
func NewStore(alloc *Allocator, opts ...StoreOption) *Store {
	if alloc == nil {
		alloc = NewAllocator(0)
	}
	s := &Store{
		index: make(map[domain.NodeID]int),
		alloc: alloc,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Queries
// ============================================================================

// Allocator returns the allocator owned by the store
func (s *Store) Allocator() *Allocator {
	return s.alloc
}

// Nodes returns a copy of the nodes in insertion order
func (s *Store) Nodes() []domain.Node {
	return append([]domain.Node(nil), s.nodes...)
}

// Edges returns a copy of the edges in insertion order
func (s *Store) Edges() []domain.Edge {
	return append([]domain.Edge(nil), s.edges...)
}

// Node returns the node with the given id
func (s *Store) Node(id domain.NodeID) (domain.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Node{}, false
	}
	return s.nodes[i], true
}

// IntnetConfig derives the membership configuration from the current edges,
// numbered from the intnet nodes
func (s *Store) IntnetConfig() domain.IntnetConfig {
	return DeriveIntnetConfig(s.edges).WithNumbers(s.nodes)
}

// PanelState returns the persisted form of the canvas layout
func (s *Store) PanelState(viewport domain.Viewport) domain.PanelState {
	nodes := make([]domain.Node, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = n.Persisted()
	}
	return domain.PanelState{Nodes: nodes, Viewport: viewport}
}

// ============================================================================
// Structural mutation
// ============================================================================

// AddNodes appends nodes to the store. A node whose id already exists
// replaces the stored one in place.
func (s *Store) AddNodes(nodes ...domain.Node) {
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		s.putNode(n)
	}
	s.mutated()
}

// AddEdge adds an edge unless an edge between the same endpoints exists.
// It reports whether the edge was added.
func (s *Store) AddEdge(edge domain.Edge) bool {
	if !s.addEdge(edge) {
		return false
	}
	s.mutated()
	return true
}

// OnConnect handles a connection gesture between two nodes. Machines are
// only ever joined through an intnet: connecting two machines creates a new
// intnet node at their midpoint and links both machines to it. Connections
// between two intnets, self connections and connections to unknown nodes are
// ignored. It returns the intnet node that received the connection.
func (s *Store) OnConnect(source, target domain.NodeID) (domain.Node, bool) {
	if source == target {
		return domain.Node{}, false
	}
	src, ok := s.Node(source)
	if !ok {
		return domain.Node{}, false
	}
	dst, ok := s.Node(target)
	if !ok {
		return domain.Node{}, false
	}

	switch {
	case src.IsIntnet() && dst.IsIntnet():
		return domain.Node{}, false

	case src.IsIntnet():
		src, dst = dst, src
		fallthrough

	case dst.IsIntnet():
		if s.AddEdge(domain.NewEdge(src.ID, dst.ID)) {
			return dst, true
		}
		return dst, false

	default:
		pos, _ := domain.Midpoint(src.Position, dst.Position)
		intnet := domain.NewIntnetNode(s.alloc.GetNext(), s.newID(), pos)
		s.putNode(intnet)
		s.addEdge(domain.NewEdge(src.ID, intnet.ID))
		s.addEdge(domain.NewEdge(dst.ID, intnet.ID))
		s.mutated()
		return intnet, true
	}
}

// OnNodesDelete returns the numbers of deleted intnet nodes to the
// allocator. Removing the nodes themselves happens through ApplyNodeChanges.
func (s *Store) OnNodesDelete(nodes []domain.Node) {
	for _, n := range nodes {
		if n.IsIntnet() {
			s.alloc.Remove(n.Intnet)
		}
	}
}

// DeleteNodes removes the deletable nodes among ids together with their
// edges and releases their intnet numbers. It returns the removed nodes.
func (s *Store) DeleteNodes(ids ...domain.NodeID) []domain.Node {
	var removed []domain.Node
	changes := make([]domain.NodeChange, 0, len(ids))
	for _, id := range ids {
		n, ok := s.Node(id)
		if !ok || !n.Deletable {
			continue
		}
		removed = append(removed, n)
		changes = append(changes, domain.NodeChange{Type: domain.ChangeRemove, ID: id})
	}
	if len(removed) == 0 {
		return nil
	}
	s.OnNodesDelete(removed)
	s.ApplyNodeChanges(changes)
	return removed
}

// Reset replaces the store contents wholesale and restarts intnet numbering
// above maxNumber with a fresh allocator. It does not count as an edit.
func (s *Store) Reset(nodes []domain.Node, edges []domain.Edge, maxNumber int) {
	s.nodes = nil
	s.edges = nil
	s.index = make(map[domain.NodeID]int, len(nodes))
	for _, n := range nodes {
		s.putNode(n)
	}
	for _, e := range edges {
		s.addEdge(e)
	}
	s.alloc = NewAllocator(maxNumber)
}

// ============================================================================
// Change application
// ============================================================================

// ApplyNodeChanges applies change events reported by the renderer.
// Positions are applied verbatim. Removing a node also drops its edges.
// Select and remove changes on machine nodes are ignored.
func (s *Store) ApplyNodeChanges(changes []domain.NodeChange) {
	dirty := false
	removed := make(map[domain.NodeID]bool)

	for _, c := range changes {
		switch c.Type {
		case domain.ChangeAdd:
			if c.Item == nil {
				continue
			}
			s.putNode(*c.Item)

		case domain.ChangeReplace:
			if c.Item == nil {
				continue
			}
			if _, ok := s.index[c.ID]; !ok {
				continue
			}
			item := *c.Item
			item.ID = c.ID
			s.nodes[s.index[c.ID]] = item

		case domain.ChangeRemove:
			i, ok := s.index[c.ID]
			if !ok || !s.nodes[i].Deletable {
				continue
			}
			removed[c.ID] = true

		case domain.ChangePosition:
			i, ok := s.index[c.ID]
			if !ok {
				continue
			}
			if c.Position != nil {
				s.nodes[i].Position = *c.Position
			}
			s.nodes[i].Dragging = c.Dragging

		case domain.ChangeDimensions:
			i, ok := s.index[c.ID]
			if !ok || c.Dimensions == nil {
				continue
			}
			dims := *c.Dimensions
			s.nodes[i].Measured = &dims

		case domain.ChangeSelect:
			i, ok := s.index[c.ID]
			if !ok || !s.nodes[i].Selectable {
				continue
			}
			s.nodes[i].Selected = c.Selected

		default:
			continue
		}

		if c.Dirties() {
			dirty = true
		}
	}

	if len(removed) > 0 {
		s.removeNodes(removed)
	}
	if dirty {
		s.mutated()
	}
}

// ApplyEdgeChanges applies edge change events reported by the renderer
func (s *Store) ApplyEdgeChanges(changes []domain.EdgeChange) {
	dirty := false
	for _, c := range changes {
		switch c.Type {
		case domain.ChangeAdd:
			if c.Item == nil || !s.addEdge(*c.Item) {
				continue
			}

		case domain.ChangeReplace:
			i := s.edgeIndex(c.ID)
			if i < 0 || c.Item == nil {
				continue
			}
			item := *c.Item
			item.ID = c.ID
			s.edges[i] = item

		case domain.ChangeRemove:
			i := s.edgeIndex(c.ID)
			if i < 0 {
				continue
			}
			s.edges = append(s.edges[:i], s.edges[i+1:]...)

		case domain.ChangeSelect:
			i := s.edgeIndex(c.ID)
			if i < 0 {
				continue
			}
			s.edges[i].Selected = c.Selected

		default:
			continue
		}
		dirty = true
	}
	if dirty {
		s.mutated()
	}
}

// ============================================================================
// Internals
// ============================================================================

func (s *Store) putNode(n domain.Node) {
	if n.Type == "" {
		n.Type = n.ID.Kind
	}
	if i, ok := s.index[n.ID]; ok {
		s.nodes[i] = n
		return
	}
	s.index[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
}

func (s *Store) addEdge(edge domain.Edge) bool {
	if edge.ID == "" {
		edge.ID = edge.GenerateID()
	}
	if s.edgeIndex(edge.ID) >= 0 {
		return false
	}
	generated := edge.GenerateID()
	for _, e := range s.edges {
		if e.GenerateID() == generated {
			return false
		}
	}
	s.edges = append(s.edges, edge)
	return true
}

func (s *Store) edgeIndex(id string) int {
	for i, e := range s.edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeNodes(ids map[domain.NodeID]bool) {
	nodes := s.nodes[:0]
	for _, n := range s.nodes {
		if !ids[n.ID] {
			nodes = append(nodes, n)
		}
	}
	s.nodes = nodes
	s.reindex()

	edges := s.edges[:0]
	for _, e := range s.edges {
		if !ids[e.Source] && !ids[e.Target] {
			edges = append(edges, e)
		}
	}
	s.edges = edges
}

func (s *Store) reindex() {
	s.index = make(map[domain.NodeID]int, len(s.nodes))
	for i, n := range s.nodes {
		s.index[n.ID] = i
	}
}

func (s *Store) mutated() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

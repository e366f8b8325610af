// Package session drives the editor lifecycle: loading the active
// configuration, a snapshot or a preset into the graph store, tracking
// unsaved edits, and persisting the result through a Backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"netpanel/internal/domain"
	"netpanel/internal/preset"
	"netpanel/internal/topology"
	"netpanel/internal/validation"
)

var (
	// ErrStaleLoad is returned by a load superseded by a later one. Its
	// result is discarded.
	ErrStaleLoad = errors.New("load superseded by a newer load")

	// ErrNotLoaded is returned when saving before anything was loaded
	ErrNotLoaded = errors.New("no configuration loaded")
)

// State is the lifecycle state of a session
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateClean
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Loaded reports whether a configuration is on the canvas
func (s State) Loaded() bool {
	return s == StateClean || s == StateDirty
}

// Backend is the persistence collaborator
type Backend interface {
	Configuration(ctx context.Context) (*domain.Configuration, error)
	Machines(ctx context.Context) (map[string]domain.Machine, error)
	PutPanelState(ctx context.Context, state domain.PanelState) error
	PutIntnets(ctx context.Context, intnets domain.IntnetConfig) error
	CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*domain.Snapshot, error)
	Snapshot(ctx context.Context, uuid string) (*domain.Snapshot, error)
	Preset(ctx context.Context, uuid string) (*domain.Preset, error)
}

// Session owns one editing session's graph store. All methods are safe for
// concurrent use; loads may overlap and only the latest one is applied.
type Session struct {
	mu sync.Mutex

	backend Backend
	runner  *preset.Runner
	store   *topology.Store

	state       State
	loadingFrom State
	viewport    domain.Viewport
	machines    []domain.Machine

	// generation counts started loads; revision counts edits
	generation uint64
	revision   uint64

	subscribers []chan<- Event
}

// Option configures a Session
type Option func(*Session)

// WithRunner sets the preset runner used by LoadPreset
func WithRunner(r *preset.Runner) Option {
	return func(s *Session) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithStoreOptions passes options to the graph store
func WithStoreOptions(opts ...topology.StoreOption) Option {
	return func(s *Session) {
		s.store = topology.NewStore(nil, append(opts, topology.WithMutationHook(s.markDirty))...)
	}
}

// New creates an unloaded session
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		runner:   preset.NewRunner(),
		viewport: domain.DefaultViewport(),
	}
	s.store = topology.NewStore(nil, topology.WithMutationHook(s.markDirty))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Accessors
// ============================================================================

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether there are unsaved edits
func (s *Session) Dirty() bool {
	return s.State() == StateDirty
}

// Generation returns the number of loads started so far
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Nodes returns the nodes on the canvas
func (s *Session) Nodes() []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Nodes()
}

// Edges returns the edges on the canvas
func (s *Session) Edges() []domain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Edges()
}

// Machines returns the inventory used by the last load
func (s *Session) Machines() []domain.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Machine(nil), s.machines...)
}

// IntnetConfig derives the membership configuration of the canvas
func (s *Session) IntnetConfig() domain.IntnetConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.IntnetConfig()
}

// Viewport returns the canvas viewport
func (s *Session) Viewport() domain.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport records a pan or zoom. It does not count as an edit.
func (s *Session) SetViewport(v domain.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v.Normalize()
}

// ============================================================================
// Graph operations
// ============================================================================

// OnConnect forwards a connection gesture to the store
func (s *Session) OnConnect(source, target domain.NodeID) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.OnConnect(source, target)
}

// OnNodesDelete releases the numbers of deleted intnet nodes
func (s *Session) OnNodesDelete(nodes []domain.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.OnNodesDelete(nodes)
}

// ApplyNodeChanges applies renderer node changes
func (s *Session) ApplyNodeChanges(changes []domain.NodeChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ApplyNodeChanges(changes)
}

// ApplyEdgeChanges applies renderer edge changes
func (s *Session) ApplyEdgeChanges(changes []domain.EdgeChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ApplyEdgeChanges(changes)
}

// DeleteNodes removes deletable nodes, their edges and their numbers
func (s *Session) DeleteNodes(ids ...domain.NodeID) []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteNodes(ids...)
}

// markDirty is the store mutation hook. It runs with s.mu held.
func (s *Session) markDirty() {
	s.revision++
	if s.state == StateLoading && s.loadingFrom == StateClean {
		s.loadingFrom = StateDirty
	}
	if s.state == StateClean {
		s.state = StateDirty
		s.publish(Event{Type: EventDirty, State: s.state, Generation: s.generation})
	}
}

// ============================================================================
// Loading
// ============================================================================

type loadTicket struct {
	generation uint64
	prev       State
}

func (s *Session) beginLoad() loadTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := loadTicket{generation: s.generation + 1, prev: s.state}
	if s.state == StateLoading {
		// an earlier load is still in flight; a failure falls back to the
		// state from before that load
		t.prev = s.loadingFrom
	}
	s.generation = t.generation
	s.loadingFrom = t.prev
	s.state = StateLoading
	return t
}

// failLoad restores the state a load started from, unless a newer load has
// taken over in the meantime
func (s *Session) failLoad(t loadTicket, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.generation {
		log.Printf("Discarding failed stale load (generation %d, latest %d): %v", t.generation, s.generation, err)
		return fmt.Errorf("%w: %v", ErrStaleLoad, err)
	}
	s.state = s.loadingFrom
	return err
}

// finishLoad replaces the graph if t is still the latest load
func (s *Session) finishLoad(t loadTicket, load *loaded, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.generation {
		log.Printf("Discarding stale load (generation %d, latest %d)", t.generation, s.generation)
		return ErrStaleLoad
	}

	s.store.Reset(load.nodes, load.edges, load.maxNumber)
	s.machines = load.machines
	if load.viewport != nil {
		s.viewport = *load.viewport
	}
	s.state = state
	s.revision++
	s.publish(Event{Type: EventLoaded, State: state, Generation: t.generation})
	return nil
}

type loaded struct {
	nodes     []domain.Node
	edges     []domain.Edge
	maxNumber int
	machines  []domain.Machine
	viewport  *domain.Viewport
}

// ResetFlow loads the active configuration, replacing the canvas, and leaves
// the session clean
func (s *Session) ResetFlow(ctx context.Context) error {
	t := s.beginLoad()

	cfg, err := s.backend.Configuration(ctx)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load configuration: %w", err))
	}
	inventory, err := s.backend.Machines(ctx)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load machines: %w", err))
	}

	load := fromConfiguration(cfg, inventory)
	vp := cfg.EffectiveViewport()
	load.viewport = &vp
	return s.finishLoad(t, load, StateClean)
}

// Restore discards pending edits by reloading the active configuration
func (s *Session) Restore(ctx context.Context) error {
	return s.ResetFlow(ctx)
}

// LoadSnapshot replaces the canvas with a snapshot. The session is dirty
// afterwards since the snapshot is not yet the active configuration.
func (s *Session) LoadSnapshot(ctx context.Context, uuid string) error {
	t := s.beginLoad()

	snap, err := s.backend.Snapshot(ctx, uuid)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load snapshot %s: %w", uuid, err))
	}
	inventory, err := s.backend.Machines(ctx)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load machines: %w", err))
	}

	load := fromConfiguration(snap.Configuration(), inventory)
	load.viewport = snap.Viewport
	return s.finishLoad(t, load, StateDirty)
}

// LoadPreset runs a preset against the inventory and replaces the canvas
// with the result. A failing preset leaves the canvas untouched.
func (s *Session) LoadPreset(ctx context.Context, uuid string) error {
	t := s.beginLoad()

	p, err := s.backend.Preset(ctx, uuid)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load preset %s: %w", uuid, err))
	}
	inventory, err := s.backend.Machines(ctx)
	if err != nil {
		return s.failLoad(t, fmt.Errorf("failed to load machines: %w", err))
	}

	machines := domain.MachinesFromMap(inventory)
	result, err := s.runner.Run(p, machines)
	if err != nil {
		return s.failLoad(t, err)
	}

	return s.finishLoad(t, &loaded{
		nodes:     result.Nodes,
		edges:     result.Edges(),
		maxNumber: result.MaxNumber,
		machines:  machines,
	}, StateDirty)
}

// fromConfiguration builds canvas contents from a saved configuration. Every
// inventory machine gets a node, at its saved position or the origin.
// Machine nodes of machines no longer in the inventory are dropped.
func fromConfiguration(cfg *domain.Configuration, inventory map[string]domain.Machine) *loaded {
	machines := domain.MachinesFromMap(inventory)
	if cfg == nil {
		cfg = domain.NewConfiguration()
	}
	positions := domain.PositionsByID(cfg.Nodes)

	nodes := make([]domain.Node, 0, len(machines)+len(cfg.Intnets))
	for _, m := range machines {
		nodes = append(nodes, domain.NewMachineNode(m, positions[m.NodeID()]))
	}

	maxNumber := cfg.Intnets.MaxNumber()
	for _, n := range cfg.IntnetNodes() {
		nodes = append(nodes, n)
		if n.Intnet > maxNumber {
			maxNumber = n.Intnet
		}
	}

	return &loaded{
		nodes:     nodes,
		edges:     topology.EdgesFromConfig(cfg.Intnets, nodes),
		maxNumber: maxNumber,
		machines:  machines,
	}
}

// ============================================================================
// Saving
// ============================================================================

// ApplyNetworkConfig persists the derived intnet configuration and then the
// canvas layout as the active configuration. A failed intnet write leaves the
// backend untouched. The session becomes clean unless it was edited while
// the requests were in flight.
func (s *Session) ApplyNetworkConfig(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Loaded() {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	panel := s.store.PanelState(s.viewport)
	intnets := s.store.IntnetConfig()
	revision := s.revision
	s.mu.Unlock()

	if err := s.backend.PutIntnets(ctx, intnets); err != nil {
		return fmt.Errorf("failed to save intnets: %w", err)
	}
	if err := s.backend.PutPanelState(ctx, panel); err != nil {
		return fmt.Errorf("failed to save panel state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision == revision && s.state.Loaded() {
		s.state = StateClean
	}
	s.publish(Event{Type: EventApplied, State: s.state, Generation: s.generation})
	return nil
}

// TakeSnapshot captures the canvas under name without saving it
func (s *Session) TakeSnapshot(name string) (*domain.Snapshot, error) {
	if err := validation.ValidateSnapshotName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Loaded() {
		return nil, ErrNotLoaded
	}
	panel := s.store.PanelState(s.viewport)
	vp := panel.Viewport
	return &domain.Snapshot{
		Name:      name,
		Deletable: true,
		Nodes:     panel.Nodes,
		Intnets:   s.store.IntnetConfig(),
		Viewport:  &vp,
	}, nil
}

// PostSnapshot stores a captured snapshot. The dirty state of the session
// is not affected. A duplicate name is reported as domain.ErrConflict.
func (s *Session) PostSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*domain.Snapshot, error) {
	if err := validation.Snapshot(snapshot); err != nil {
		return nil, err
	}
	created, err := s.backend.CreateSnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot %q: %w", snapshot.Name, err)
	}

	s.mu.Lock()
	s.publish(Event{Type: EventSnapshot, State: s.state, Generation: s.generation})
	s.mu.Unlock()
	return created, nil
}

// SaveSnapshot captures and stores the canvas under name
func (s *Session) SaveSnapshot(ctx context.Context, name string) (*domain.Snapshot, error) {
	snap, err := s.TakeSnapshot(name)
	if err != nil {
		return nil, err
	}
	return s.PostSnapshot(ctx, snap)
}

package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"netpanel/internal/codec"
	"netpanel/internal/domain"
	"netpanel/internal/metrics"
	"netpanel/internal/repository"
	"netpanel/internal/validation"
)

// NetworkService manages the active network configuration and snapshots
type NetworkService struct {
	repo     repository.Repository
	eventBus *EventBus
	metrics  *metrics.Registry

	newID func() string
	now   func() time.Time
}

// NewNetworkService creates a new network service. m may be nil.
func NewNetworkService(repo repository.Repository, eventBus *EventBus, m *metrics.Registry) *NetworkService {
	return &NetworkService{
		repo:     repo,
		eventBus: eventBus,
		metrics:  m,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Configuration returns the saved panel state together with the applied
// intnet membership
func (s *NetworkService) Configuration(ctx context.Context) (*domain.Configuration, error) {
	state, err := s.repo.GetPanelState(ctx)
	if err != nil {
		return nil, err
	}
	intnets, err := s.repo.GetIntnets(ctx)
	if err != nil {
		return nil, err
	}

	vp := state.Viewport
	return &domain.Configuration{
		Nodes:    state.Nodes,
		Intnets:  intnets.WithNumbers(state.Nodes),
		Viewport: &vp,
	}, nil
}

// SavePanelState stores the canvas layout
func (s *NetworkService) SavePanelState(ctx context.Context, state domain.PanelState) error {
	nodes, err := cleanNodes(state.Nodes)
	if err != nil {
		return err
	}
	state.Nodes = nodes
	state.Viewport = state.Viewport.Normalize()

	if err := s.repo.SavePanelState(ctx, state); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventPanelStateSaved,
		Payload: map[string]int{"nodes": len(state.Nodes)},
	})

	return nil
}

// ApplyIntnets replaces the intnet membership handed to the hypervisor
// integration. Keys must match entry uuids; a missing entry uuid is taken
// from its key.
func (s *NetworkService) ApplyIntnets(ctx context.Context, intnets domain.IntnetConfig) error {
	clean, err := cleanIntnets(intnets)
	if err != nil {
		return err
	}

	if machines, err := s.repo.ListMachines(ctx); err == nil && len(machines) > 0 {
		known := make(map[string]bool, len(machines))
		for _, m := range machines {
			known[m.UUID] = true
		}
		for _, entry := range clean {
			for _, id := range entry.Machines {
				if !known[id] {
					log.Printf("Intnet %s references unknown machine %s", entry.UUID, id)
				}
			}
		}
	}

	if err := s.repo.ReplaceIntnets(ctx, clean); err != nil {
		return err
	}
	s.metrics.RecordIntnetsApplied(len(clean))

	s.eventBus.Publish(Event{
		Type:    EventIntnetsApplied,
		Payload: clean,
	})

	return nil
}

// ListSnapshots returns all snapshots, oldest first
func (s *NetworkService) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	return s.repo.ListSnapshots(ctx)
}

// GetSnapshot retrieves a single snapshot by uuid
func (s *NetworkService) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	return s.repo.GetSnapshot(ctx, id)
}

// CreateSnapshot validates and stores a new snapshot. The server assigns
// the uuid when the caller left it empty and always stamps the creation
// time.
func (s *NetworkService) CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*domain.Snapshot, error) {
	created, err := s.createSnapshot(ctx, snapshot)
	s.metrics.RecordSnapshotOp("create", err)
	return created, err
}

func (s *NetworkService) createSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*domain.Snapshot, error) {
	if err := validation.Snapshot(snapshot); err != nil {
		return nil, err
	}

	nodes, err := cleanNodes(snapshot.Nodes)
	if err != nil {
		return nil, err
	}
	intnets, err := cleanIntnets(snapshot.Intnets)
	if err != nil {
		return nil, err
	}

	created := *snapshot
	created.Nodes = nodes
	created.Intnets = intnets
	if created.UUID == "" {
		created.UUID = s.newID()
	}
	if created.Viewport != nil {
		vp := created.Viewport.Normalize()
		created.Viewport = &vp
	}
	created.CreatedAt = s.now()

	if err := s.repo.CreateSnapshot(ctx, &created); err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventSnapshotCreated,
		Payload: map[string]string{"uuid": created.UUID, "name": created.Name},
	})

	return &created, nil
}

// RenameSnapshot changes the name of a snapshot
func (s *NetworkService) RenameSnapshot(ctx context.Context, id string, req domain.RenameRequest) (*domain.Snapshot, error) {
	renamed, err := s.renameSnapshot(ctx, id, req)
	s.metrics.RecordSnapshotOp("rename", err)
	return renamed, err
}

func (s *NetworkService) renameSnapshot(ctx context.Context, id string, req domain.RenameRequest) (*domain.Snapshot, error) {
	if err := validation.Rename(&req); err != nil {
		return nil, err
	}
	if err := s.repo.RenameSnapshot(ctx, id, req.Name); err != nil {
		return nil, err
	}

	renamed, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventSnapshotRenamed,
		Payload: map[string]string{"uuid": id, "name": req.Name},
	})

	return renamed, nil
}

// DeleteSnapshot removes a deletable snapshot
func (s *NetworkService) DeleteSnapshot(ctx context.Context, id string) error {
	err := s.deleteSnapshot(ctx, id)
	s.metrics.RecordSnapshotOp("delete", err)
	return err
}

func (s *NetworkService) deleteSnapshot(ctx context.Context, id string) error {
	snapshot, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if !snapshot.Deletable {
		return fmt.Errorf("snapshot %s is not deletable: %w", snapshot.Name, domain.ErrForbidden)
	}

	if err := s.repo.DeleteSnapshot(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventSnapshotDeleted,
		Payload: map[string]string{"uuid": id},
	})

	return nil
}

// ExportSnapshot writes a snapshot in the given format ("json" or "yaml")
func (s *NetworkService) ExportSnapshot(ctx context.Context, id, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	snapshot, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	return c.ExportSnapshot(snapshot, w)
}

// ImportSnapshot parses a snapshot document and stores it as a new
// snapshot. The document's uuid is discarded.
func (s *NetworkService) ImportSnapshot(ctx context.Context, r io.Reader, format string) (*domain.Snapshot, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	snapshot, err := c.ParseSnapshot(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	snapshot.UUID = ""
	return s.CreateSnapshot(ctx, snapshot)
}

// cleanNodes strips render state and rejects nodes the canvas cannot show
func cleanNodes(nodes []domain.Node) ([]domain.Node, error) {
	clean := make([]domain.Node, 0, len(nodes))
	seen := make(map[domain.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if !n.ID.Kind.Valid() || n.ID.ID == "" {
			return nil, fmt.Errorf("%w: node %q has no valid id", domain.ErrInvalid, n.ID.String())
		}
		if !n.Position.IsFinite() {
			return nil, fmt.Errorf("%w: node %s has a non-finite position", domain.ErrInvalid, n.ID)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("%w: duplicate node %s", domain.ErrInvalid, n.ID)
		}
		seen[n.ID] = true
		clean = append(clean, n.Persisted().Normalize())
	}
	return clean, nil
}

// cleanIntnets checks key/uuid agreement and membership duplicates
func cleanIntnets(intnets domain.IntnetConfig) (domain.IntnetConfig, error) {
	clean := make(domain.IntnetConfig, len(intnets))
	for key, entry := range intnets {
		if entry.UUID == "" {
			entry.UUID = key
		}
		if entry.UUID != key {
			return nil, fmt.Errorf("%w: intnet key %s does not match uuid %s", domain.ErrInvalid, key, entry.UUID)
		}
		if entry.Number < 0 {
			return nil, fmt.Errorf("%w: intnet %s has a negative number", domain.ErrInvalid, key)
		}

		members := make(map[string]bool, len(entry.Machines))
		machines := make([]string, 0, len(entry.Machines))
		for _, id := range entry.Machines {
			if members[id] {
				return nil, fmt.Errorf("%w: machine %s listed twice in intnet %s", domain.ErrInvalid, id, key)
			}
			members[id] = true
			machines = append(machines, id)
		}
		entry.Machines = machines
		clean[key] = entry
	}
	return clean, nil
}

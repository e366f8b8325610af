package service

import (
	"context"
	"fmt"
	"io"
	"log"

	"netpanel/internal/codec"
	"netpanel/internal/domain"
	"netpanel/internal/loader"
	"netpanel/internal/metrics"
	"netpanel/internal/repository"
)

// MachineService manages the machine inventory
type MachineService struct {
	repo     repository.Repository
	eventBus *EventBus
	metrics  *metrics.Registry
}

// NewMachineService creates a new machine service. m may be nil.
func NewMachineService(repo repository.Repository, eventBus *EventBus, m *metrics.Registry) *MachineService {
	return &MachineService{
		repo:     repo,
		eventBus: eventBus,
		metrics:  m,
	}
}

// List returns the machines in canonical order
func (s *MachineService) List(ctx context.Context) ([]domain.Machine, error) {
	machines, err := s.repo.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortMachines(machines)
	return machines, nil
}

// Inventory returns the machines keyed by uuid, the shape served on
// /vm/all/networkdata
func (s *MachineService) Inventory(ctx context.Context) (map[string]domain.Machine, error) {
	machines, err := s.repo.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	inventory := make(map[string]domain.Machine, len(machines))
	for _, m := range machines {
		inventory[m.UUID] = m
	}
	return inventory, nil
}

// Get retrieves a single machine
func (s *MachineService) Get(ctx context.Context, id string) (*domain.Machine, error) {
	return s.repo.GetMachine(ctx, id)
}

// Upsert creates or updates a machine
func (s *MachineService) Upsert(ctx context.Context, m *domain.Machine) error {
	if err := validateMachine(m); err != nil {
		return err
	}
	if err := s.repo.UpsertMachine(ctx, m); err != nil {
		return err
	}

	s.refreshCount(ctx)
	s.eventBus.Publish(Event{
		Type:    EventMachinesUpdated,
		Payload: map[string]string{"uuid": m.UUID},
	})
	return nil
}

// Delete removes a machine
func (s *MachineService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteMachine(ctx, id); err != nil {
		return err
	}

	s.refreshCount(ctx)
	s.eventBus.Publish(Event{
		Type:    EventMachineDeleted,
		Payload: map[string]string{"uuid": id},
	})
	return nil
}

// Replace swaps the whole inventory
func (s *MachineService) Replace(ctx context.Context, machines []domain.Machine) error {
	seen := make(map[string]bool, len(machines))
	for i := range machines {
		if err := validateMachine(&machines[i]); err != nil {
			return err
		}
		if seen[machines[i].UUID] {
			return fmt.Errorf("%w: duplicate machine %s", domain.ErrInvalid, machines[i].UUID)
		}
		seen[machines[i].UUID] = true
	}

	if err := s.repo.ReplaceMachines(ctx, machines); err != nil {
		return err
	}

	s.metrics.SetMachines(len(machines))
	s.eventBus.Publish(Event{
		Type:    EventMachinesUpdated,
		Payload: map[string]int{"count": len(machines)},
	})
	return nil
}

// SeedFromFile replaces the inventory with the machines of an inventory
// file and returns how many were loaded
func (s *MachineService) SeedFromFile(ctx context.Context, path, format string) (int, error) {
	machines, err := loader.LoadInventory(path, format)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(ctx, machines); err != nil {
		return 0, err
	}
	log.Printf("Seeded %d machines from %s", len(machines), path)
	return len(machines), nil
}

// Import replaces the inventory with a parsed inventory document
func (s *MachineService) Import(ctx context.Context, r io.Reader, format string) (int, error) {
	c, err := codec.InventoryForFormat(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	machines, err := c.ParseInventory(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	if err := s.Replace(ctx, machines); err != nil {
		return 0, err
	}
	return len(machines), nil
}

// Export writes the inventory as a YAML or Ansible inventory document
func (s *MachineService) Export(ctx context.Context, format string, w io.Writer) error {
	c, err := codec.InventoryForFormat(format)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	machines, err := s.List(ctx)
	if err != nil {
		return err
	}
	return c.ExportInventory(machines, w)
}

func (s *MachineService) refreshCount(ctx context.Context) {
	machines, err := s.repo.ListMachines(ctx)
	if err != nil {
		log.Printf("Failed to count machines: %v", err)
		return
	}
	s.metrics.SetMachines(len(machines))
}

func validateMachine(m *domain.Machine) error {
	if m == nil || m.UUID == "" {
		return fmt.Errorf("%w: machine uuid required", domain.ErrInvalid)
	}
	if m.GroupMemberID < 0 {
		return fmt.Errorf("%w: machine %s has a negative group member id", domain.ErrInvalid, m.UUID)
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("%w: machine %s has an invalid port %d", domain.ErrInvalid, m.UUID, m.Port)
	}
	switch m.State {
	case "", domain.MachineStateActive, domain.MachineStateLoading, domain.MachineStateOffline:
	default:
		return fmt.Errorf("%w: machine %s has unknown state %q", domain.ErrInvalid, m.UUID, m.State)
	}
	return nil
}

package repository

import (
	"context"

	"netpanel/internal/domain"
)

// Repository defines the interface for network configuration data access.
// Lookups of missing records return errors matching domain.ErrNotFound and
// duplicate snapshot names return errors matching domain.ErrConflict.
type Repository interface {
	// Active configuration
	GetPanelState(ctx context.Context) (*domain.PanelState, error)
	SavePanelState(ctx context.Context, state domain.PanelState) error
	GetIntnets(ctx context.Context) (domain.IntnetConfig, error)
	ReplaceIntnets(ctx context.Context, intnets domain.IntnetConfig) error

	// Snapshots
	ListSnapshots(ctx context.Context) ([]domain.Snapshot, error)
	GetSnapshot(ctx context.Context, uuid string) (*domain.Snapshot, error)
	CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) error
	RenameSnapshot(ctx context.Context, uuid, name string) error
	DeleteSnapshot(ctx context.Context, uuid string) error

	// Machine inventory
	ListMachines(ctx context.Context) ([]domain.Machine, error)
	GetMachine(ctx context.Context, uuid string) (*domain.Machine, error)
	UpsertMachine(ctx context.Context, machine *domain.Machine) error
	DeleteMachine(ctx context.Context, uuid string) error
	ReplaceMachines(ctx context.Context, machines []domain.Machine) error

	// Close releases resources
	Close() error
}

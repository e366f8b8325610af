package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"netpanel/internal/domain"
	"netpanel/internal/loader"
	"netpanel/internal/metrics"
	"netpanel/internal/preset"
)

// PresetService serves the presets of the preset directory
type PresetService struct {
	dir      string
	machines *MachineService
	eventBus *EventBus
	metrics  *metrics.Registry
	runner   *preset.Runner

	mu      sync.RWMutex
	presets map[string]*domain.Preset
	order   []domain.PresetSummary
}

// NewPresetService creates a preset service reading from dir. Call Reload
// to load the directory.
func NewPresetService(dir string, machines *MachineService, eventBus *EventBus, m *metrics.Registry) *PresetService {
	return &PresetService{
		dir:      dir,
		machines: machines,
		eventBus: eventBus,
		metrics:  m,
		runner:   preset.NewRunner(),
		presets:  make(map[string]*domain.Preset),
	}
}

// Dir returns the preset directory
func (s *PresetService) Dir() string {
	return s.dir
}

// Reload re-reads the preset directory. Presets that fail to load are
// reported in the returned error while the others are still served. When
// the directory cannot be read the previous presets are kept.
func (s *PresetService) Reload() error {
	presets, err := loader.LoadPresetDir(s.dir)
	if presets == nil && err != nil {
		return err
	}
	s.Set(presets)
	return err
}

// Set replaces the served presets
func (s *PresetService) Set(presets []*domain.Preset) {
	byID := make(map[string]*domain.Preset, len(presets))
	order := make([]domain.PresetSummary, 0, len(presets))
	for _, p := range presets {
		byID[p.UUID] = p
		order = append(order, p.Summary())
	}

	s.mu.Lock()
	s.presets = byID
	s.order = order
	s.mu.Unlock()

	s.metrics.SetPresetsLoaded(len(presets))
	s.eventBus.Publish(Event{
		Type:    EventPresetsReloaded,
		Payload: map[string]int{"count": len(presets)},
	})
}

// List returns the preset summaries sorted by name
func (s *PresetService) List() []domain.PresetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PresetSummary, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns a preset by uuid
func (s *PresetService) Get(id string) (*domain.Preset, error) {
	s.mu.RLock()
	p, ok := s.presets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("preset %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// Preview evaluates a preset against the current machine inventory without
// changing the active configuration
func (s *PresetService) Preview(ctx context.Context, id string) (*preset.Result, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	machines, err := s.machines.List(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.runner.Run(p, machines)
	s.metrics.RecordPresetRun(p.Name, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

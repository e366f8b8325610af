package metrics

import (
	"time"
)

// Operation outcome labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status returns the outcome label for err
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Record methods are no-ops on a nil *Registry.

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordPresetRun records a preset evaluation
func (r *Registry) RecordPresetRun(preset string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	r.PresetRunsTotal.WithLabelValues(preset, Status(err)).Inc()
	r.PresetRunDuration.Observe(duration.Seconds())
}

// RecordSnapshotOp records a snapshot create, rename or delete
func (r *Registry) RecordSnapshotOp(operation string, err error) {
	if r == nil {
		return
	}
	r.SnapshotOpsTotal.WithLabelValues(operation, Status(err)).Inc()
}

// RecordIntnetsApplied records an applied intnet configuration of n intnets
func (r *Registry) RecordIntnetsApplied(n int) {
	if r == nil {
		return
	}
	r.IntnetsApplied.Inc()
	r.IntnetsActive.Set(float64(n))
}

// SetPresetsLoaded records the number of loaded presets
func (r *Registry) SetPresetsLoaded(n int) {
	if r == nil {
		return
	}
	r.PresetsLoaded.Set(float64(n))
}

// SetMachines records the inventory size
func (r *Registry) SetMachines(n int) {
	if r == nil {
		return
	}
	r.MachinesTotal.Set(float64(n))
}

// RecordEventDropped records an event dropped for a slow subscriber
func (r *Registry) RecordEventDropped() {
	if r == nil {
		return
	}
	r.EventsDroppedTotal.Inc()
}

// RecordAuthFailure records a rejected login or token
func (r *Registry) RecordAuthFailure() {
	if r == nil {
		return
	}
	r.AuthFailuresTotal.Inc()
}

// SetSSEClients records the number of connected event stream clients
func (r *Registry) SetSSEClients(n int) {
	if r == nil {
		return
	}
	r.SSEClientsConnected.Set(float64(n))
}

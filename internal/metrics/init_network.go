package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNetworkMetrics() {
	r.PresetRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpanel_preset_runs_total",
			Help: "Total number of preset evaluations",
		},
		[]string{"preset", "status"},
	)

	r.PresetRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netpanel_preset_run_duration_seconds",
			Help:    "Preset evaluation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	r.PresetsLoaded = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netpanel_presets_loaded",
			Help: "Number of presets currently loaded from the preset directory",
		},
	)

	r.SnapshotOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpanel_snapshot_operations_total",
			Help: "Total number of snapshot operations",
		},
		[]string{"operation", "status"},
	)

	r.IntnetsApplied = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netpanel_intnets_applied_total",
			Help: "Total number of intnet configurations applied",
		},
	)

	r.IntnetsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netpanel_intnets_active",
			Help: "Number of intnets in the active configuration",
		},
	)

	r.MachinesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netpanel_machines_total",
			Help: "Number of machines in the inventory",
		},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netpanel_events_dropped_total",
			Help: "Total number of events dropped for slow subscribers",
		},
	)
}

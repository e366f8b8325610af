package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpanel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netpanel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netpanel_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	r.AuthFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netpanel_auth_failures_total",
			Help: "Total number of rejected logins and bearer tokens",
		},
	)

	r.SSEClientsConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netpanel_sse_clients_connected",
			Help: "Number of connected event stream clients",
		},
	)
}

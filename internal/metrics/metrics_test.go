package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.PresetRunsTotal == nil {
		t.Error("PresetRunsTotal not initialized")
	}
	if r.SnapshotOpsTotal == nil {
		t.Error("SnapshotOpsTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/network/configuration", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("GET", "/network/configuration", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/network/configuration", "404", 5*time.Millisecond)

	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/network/configuration", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, counter); got != 2 {
		t.Errorf("Counter value = %v, want 2", got)
	}
}

func TestRecordPresetRun(t *testing.T) {
	r := NewRegistry()
	r.RecordPresetRun("star", nil, time.Millisecond)
	r.RecordPresetRun("star", errors.New("division by zero"), time.Millisecond)
	r.RecordPresetRun("star", nil, time.Millisecond)

	success, _ := r.PresetRunsTotal.GetMetricWithLabelValues("star", StatusSuccess)
	failure, _ := r.PresetRunsTotal.GetMetricWithLabelValues("star", StatusError)
	if got := counterValue(t, success); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}
	if got := counterValue(t, failure); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
}

func TestRecordSnapshotOpAndIntnets(t *testing.T) {
	r := NewRegistry()
	r.RecordSnapshotOp("create", nil)
	r.RecordSnapshotOp("delete", errors.New("forbidden"))
	r.RecordIntnetsApplied(3)

	created, _ := r.SnapshotOpsTotal.GetMetricWithLabelValues("create", StatusSuccess)
	if got := counterValue(t, created); got != 1 {
		t.Errorf("create = %v, want 1", got)
	}
	if got := counterValue(t, r.IntnetsApplied); got != 1 {
		t.Errorf("intnets applied = %v, want 1", got)
	}

	var metric dto.Metric
	if err := r.IntnetsActive.Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.Gauge.GetValue() != 3 {
		t.Errorf("intnets active = %v, want 3", metric.Gauge.GetValue())
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordSnapshotOp("rename", nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `netpanel_snapshot_operations_total{operation="rename",status="success"} 1`) {
		t.Errorf("expected snapshot counter in exposition, got:\n%s", body)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	r.RecordPresetRun("star", nil, time.Millisecond)
	r.RecordSnapshotOp("create", nil)
	r.RecordIntnetsApplied(1)
	r.SetPresetsLoaded(1)
	r.SetMachines(1)
	r.RecordEventDropped()
	r.RecordAuthFailure()
	r.SetSSEClients(1)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewClientMetrics("test", reg)
	if err != nil {
		t.Fatalf("NewClientMetrics: %v", err)
	}

	m.Observe("list runs", "success", 10*time.Millisecond)
	m.Observe("list runs", "success", 20*time.Millisecond)
	m.Observe("get bug graph", "not_found", time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("list runs", "success")); got != 2 {
		t.Errorf("list runs successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("get bug graph", "not_found")); got != 1 {
		t.Errorf("bug graph not found = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestRegisterTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHTTPMetrics("", reg)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, err := NewHTTPMetrics("", reg)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}

	second.Observe("GET", "/run_list", "200")
	if got := testutil.ToFloat64(first.requests.WithLabelValues("GET", "/run_list", "200")); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics("test", reg)
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}
	m.Observe("GET", "/bug_list", "200")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/bug_list", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}
	if m.httpRequestsTotal == nil {
		t.Error("httpRequestsTotal is nil")
	}
	if m.rateLimitBlocked == nil {
		t.Error("rateLimitBlocked is nil")
	}
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	err := m.Register(reg)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Record observations to create metrics entries
	m.ObserveHTTPRequest("POST", "/api/voter/login", "200", 0.042, 128, 256)
	m.IncRateLimitBlocked("/api/voter/login")

	// Verify metrics are registered by checking they can be collected
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	found := make(map[string]bool)
	for _, mf := range metrics {
		found[mf.GetName()] = true
	}

	for _, name := range []string{
		MetricHTTPRequestDuration,
		MetricHTTPRequestsTotal,
		MetricHTTPRequestSizeBytes,
		MetricHTTPResponseSizeBytes,
		MetricRateLimitBlocked,
	} {
		if !found[name] {
			t.Errorf("metric %s not found in registry", name)
		}
	}
}

func TestMetrics_Register_Duplicate(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected error registering the same collectors twice")
	}
}

func TestMetrics_ObserveHTTPRequest(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Two requests to the same route, one to another
	m.ObserveHTTPRequest("POST", "/api/voter/cast-vote", "201", 0.120, 512, 128)
	m.ObserveHTTPRequest("POST", "/api/voter/cast-vote", "201", 0.095, 480, 128)
	m.ObserveHTTPRequest("GET", "/api/elections", "200", 0.004, 0, 1024)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	var requestsMetric *dto.MetricFamily
	for i := range metrics {
		if metrics[i].GetName() == MetricHTTPRequestsTotal {
			requestsMetric = metrics[i]
			break
		}
	}

	if requestsMetric == nil {
		t.Fatal("http_requests_total metric not found")
	}

	if len(requestsMetric.GetMetric()) != 2 {
		t.Fatalf("expected 2 metric entries, got %d", len(requestsMetric.GetMetric()))
	}

	for _, entry := range requestsMetric.GetMetric() {
		labels := make(map[string]string)
		for _, lp := range entry.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		switch labels["path"] {
		case "/api/voter/cast-vote":
			if got := entry.GetCounter().GetValue(); got != 2 {
				t.Errorf("cast-vote counter = %v, want 2", got)
			}
		case "/api/elections":
			if got := entry.GetCounter().GetValue(); got != 1 {
				t.Errorf("elections counter = %v, want 1", got)
			}
		default:
			t.Errorf("unexpected path label %q", labels["path"])
		}
	}
}

func TestMetrics_IncRateLimitBlocked(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.IncRateLimitBlocked("/api/voter/login")
	m.IncRateLimitBlocked("/api/voter/login")
	m.IncRateLimitBlocked("/api/admin/login")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	var blockedMetric *dto.MetricFamily
	for i := range metrics {
		if metrics[i].GetName() == MetricRateLimitBlocked {
			blockedMetric = metrics[i]
			break
		}
	}

	if blockedMetric == nil {
		t.Fatal("rate_limit_blocked_total metric not found")
	}

	if len(blockedMetric.GetMetric()) != 2 {
		t.Errorf("expected 2 metric entries, got %d", len(blockedMetric.GetMetric()))
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		path   string
		expect string
	}{
		{"/", "/"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/payments", "/api/payments"},
		{"/api/payments/extra", "/api/payments"},
		{"/api/cart", "/api/cart"},
		{"/api/checkout/session", "/api/checkout/session"},
		{"/favicon.ico", "other"},
		{"/api/unknown", "other"},
	}

	for _, tc := range cases {
		if got := normalizePath(tc.path); got != tc.expect {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.path, got, tc.expect)
		}
	}
}

func TestMetrics_RecordsRequests(t *testing.T) {
	m := NewHTTPMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	count := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/payments", "200"))
	if count != 3 {
		t.Errorf("expected 3 recorded requests, got %g", count)
	}
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	m := NewHTTPMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/merchant"
)

func postCheckout(t *testing.T, h *CheckoutHandlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

const validCheckoutBody = `{"merchant_id":"merch-1","items":[{"id":"prod-1","name":"Widget","price":500,"quantity":2}],"total":1000}`

func TestCreateCheckoutSession(t *testing.T) {
	var forwarded merchant.CheckoutSession
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&forwarded); err != nil {
			t.Errorf("backend received malformed body: %v", err)
		}
		json.NewEncoder(w).Encode(merchant.CheckoutAck{CheckoutURL: "https://pay.example.com/" + forwarded.ID})
	}))
	defer backend.Close()

	h := NewCheckoutHandlers(merchant.NewClient(backend.URL, time.Second))
	rec := postCheckout(t, h, validCheckoutBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CreateCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	cs := resp.CheckoutSession
	if !strings.HasPrefix(cs.ID, "cs_") {
		t.Errorf("unexpected session id format: %q", cs.ID)
	}

	// Fee split: 3% platform, 2.9% + 30 gateway, remainder to the merchant.
	if math.Abs(cs.PlatformFee-30.0) > 1e-9 {
		t.Errorf("expected platform fee 30, got %g", cs.PlatformFee)
	}
	if math.Abs(cs.GatewayFee-59.0) > 1e-9 {
		t.Errorf("expected gateway fee 59, got %g", cs.GatewayFee)
	}
	if math.Abs(cs.MerchantPayout-911.0) > 1e-9 {
		t.Errorf("expected payout 911, got %g", cs.MerchantPayout)
	}
	if cs.Currency != "PKR" {
		t.Errorf("unexpected currency: %q", cs.Currency)
	}
	if cs.Status != "pending" {
		t.Errorf("unexpected status: %q", cs.Status)
	}
	if cs.CheckoutURL != "https://pay.example.com/"+cs.ID {
		t.Errorf("expected backend checkout url, got %q", cs.CheckoutURL)
	}
	if forwarded.MerchantID != "merch-1" {
		t.Errorf("backend received merchant %q", forwarded.MerchantID)
	}
	if resp.Warning != "" {
		t.Errorf("unexpected warning: %q", resp.Warning)
	}
}

func TestCreateCheckoutSession_Validation(t *testing.T) {
	h := NewCheckoutHandlers(merchant.NewClient("http://localhost:0", time.Second))

	cases := []struct {
		name string
		body string
	}{
		{"missing merchant", `{"items":[{"id":"p","price":1,"quantity":1}],"total":1}`},
		{"missing items", `{"merchant_id":"merch-1","total":1}`},
		{"malformed json", `{oops`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := postCheckout(t, h, tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreateCheckoutSession_BackendDownDegrades(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	h := NewCheckoutHandlers(merchant.NewClient(backend.URL, time.Second))
	rec := postCheckout(t, h, validCheckoutBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected degraded 200 when backend is down, got %d", rec.Code)
	}
	var resp CreateCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true in degraded mode")
	}
	if resp.Warning == "" {
		t.Error("expected a warning in degraded mode")
	}
	if resp.CheckoutSession.CheckoutURL != "/checkout/"+resp.CheckoutSession.ID {
		t.Errorf("expected local checkout url, got %q", resp.CheckoutSession.CheckoutURL)
	}
}

func TestGetCheckoutSession_Relay(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session_id") != "cs_1" {
			t.Errorf("unexpected session_id: %q", r.URL.Query().Get("session_id"))
		}
		w.Write([]byte(`{"id":"cs_1","status":"pending","total":1000}`))
	}))
	defer backend.Close()

	h := NewCheckoutHandlers(merchant.NewClient(backend.URL, time.Second))
	req := httptest.NewRequest(http.MethodGet, "/api/checkout/session?session_id=cs_1", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"id":"cs_1","status":"pending","total":1000}` {
		t.Errorf("expected verbatim relay, got %s", body)
	}
}

func TestGetCheckoutSession_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	h := NewCheckoutHandlers(merchant.NewClient(notFound.URL, time.Second))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/session", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without identifiers, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/checkout/session?session_id=cs_absent", nil)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()
	h = NewCheckoutHandlers(merchant.NewClient(down.URL, time.Second))

	req = httptest.NewRequest(http.MethodGet, "/api/checkout/session?session_id=cs_1", nil)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when backend is down, got %d", rec.Code)
	}
}

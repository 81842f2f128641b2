package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/merchant"
)

// Fee schedule: 3% platform fee plus the gateway's 2.9% + 30 (minor units).
const (
	platformFeeRate   = 0.03
	gatewayFeeRate    = 0.029
	gatewayFeeFlat    = 30.0
	checkoutCurrency  = "PKR"
	checkoutStatusNew = "pending"
)

// CheckoutHandlers holds dependencies for checkout session HTTP handlers.
type CheckoutHandlers struct {
	backend *merchant.Client
}

// NewCheckoutHandlers creates a new CheckoutHandlers instance.
func NewCheckoutHandlers(backend *merchant.Client) *CheckoutHandlers {
	return &CheckoutHandlers{backend: backend}
}

// CreateCheckoutRequest is the body for creating a checkout session.
type CreateCheckoutRequest struct {
	MerchantID string                  `json:"merchant_id"`
	Items      []merchant.CheckoutItem `json:"items"`
	Total      float64                 `json:"total"`
}

// CheckoutSummary is the session summary returned to the storefront.
type CheckoutSummary struct {
	ID             string  `json:"id"`
	Total          float64 `json:"total"`
	PlatformFee    float64 `json:"platform_fee"`
	GatewayFee     float64 `json:"gateway_fee"`
	MerchantPayout float64 `json:"merchant_payout"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	CheckoutURL    string  `json:"checkout_url"`
}

// CreateCheckoutResponse wraps the summary with the line items echoed back.
type CreateCheckoutResponse struct {
	Success         bool                    `json:"success"`
	CheckoutSession CheckoutSummary         `json:"checkout_session"`
	Items           []merchant.CheckoutItem `json:"items"`
	Warning         string                  `json:"warning,omitempty"`
}

// CreateCheckoutSession computes the fee split and forwards the session to
// the backend system of record. If the backend is unreachable the session is
// still created locally with a warning so checkout is not blocked.
// POST /api/checkout/session
func (h *CheckoutHandlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MerchantID == "" || len(req.Items) == 0 {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing required fields: merchant_id, items")
		return
	}

	platformFee := req.Total * platformFeeRate
	gatewayFee := req.Total*gatewayFeeRate + gatewayFeeFlat
	payout := req.Total - platformFee - gatewayFee

	now := time.Now().UTC()
	cs := &merchant.CheckoutSession{
		ID:             newCheckoutSessionID(),
		MerchantID:     req.MerchantID,
		Items:          req.Items,
		Total:          req.Total,
		PlatformFee:    platformFee,
		GatewayFee:     gatewayFee,
		MerchantPayout: payout,
		Currency:       checkoutCurrency,
		Status:         checkoutStatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	summary := CheckoutSummary{
		ID:             cs.ID,
		Total:          cs.Total,
		PlatformFee:    cs.PlatformFee,
		GatewayFee:     cs.GatewayFee,
		MerchantPayout: cs.MerchantPayout,
		Currency:       cs.Currency,
		Status:         cs.Status,
		CheckoutURL:    "/checkout/" + cs.ID,
	}

	ack, err := h.backend.CreateCheckoutSession(ctx, cs)
	if err != nil {
		if errors.Is(err, merchant.ErrUnavailable) {
			slog.WarnContext(ctx, "backend unreachable, creating checkout session locally", "session_id", cs.ID, "error", err)
			writeJSON(w, ctx, http.StatusOK, CreateCheckoutResponse{
				Success:         true,
				CheckoutSession: summary,
				Items:           cs.Items,
				Warning:         "Backend temporarily unavailable, session created locally",
			})
			return
		}
		slog.ErrorContext(ctx, "backend rejected checkout session", "session_id", cs.ID, "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create checkout session in backend")
		return
	}

	if ack.CheckoutURL != "" {
		summary.CheckoutURL = ack.CheckoutURL
	}
	writeJSON(w, ctx, http.StatusOK, CreateCheckoutResponse{
		Success:         true,
		CheckoutSession: summary,
		Items:           cs.Items,
	})
}

// GetCheckoutSession relays a stored checkout session from the backend.
// GET /api/checkout/session?session_id=...&merchant_id=...
func (h *CheckoutHandlers) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session_id")
	merchantID := r.URL.Query().Get("merchant_id")
	if sessionID == "" && merchantID == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing session_id or merchant_id parameter")
		return
	}

	doc, err := h.backend.GetCheckoutSession(ctx, sessionID, merchantID)
	if err != nil {
		switch {
		case errors.Is(err, merchant.ErrNotFound):
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Checkout session not found")
		case errors.Is(err, merchant.ErrUnavailable):
			WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeBackendDown, "Backend temporarily unavailable")
		default:
			slog.ErrorContext(ctx, "checkout session fetch failed", "session_id", sessionID, "error", err)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch checkout session")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// Routes dispatches /api/checkout/session by method.
func (h *CheckoutHandlers) Routes() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.CreateCheckoutSession(w, r)
		case http.MethodGet:
			h.GetCheckoutSession(w, r)
		default:
			WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	})
}

// newCheckoutSessionID generates cs_<ms>_<random> identifiers.
func newCheckoutSessionID() string {
	const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 9)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("cs_%d_%s", time.Now().UnixMilli(), string(b))
}

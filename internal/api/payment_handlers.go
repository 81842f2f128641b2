package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hmkhan10/routebase-payments/internal/payment"
)

// PaymentHandlers holds dependencies for payment-related HTTP handlers.
type PaymentHandlers struct {
	coordinator *payment.Coordinator
}

// NewPaymentHandlers creates a new PaymentHandlers instance.
func NewPaymentHandlers(coordinator *payment.Coordinator) *PaymentHandlers {
	return &PaymentHandlers{coordinator: coordinator}
}

// SubmitPaymentResponse is the success body for a processed payment.
type SubmitPaymentResponse struct {
	Success        bool   `json:"success"`
	PaymentID      string `json:"paymentId"`
	Message        string `json:"message"`
	ProcessingTime int64  `json:"processingTime"`
}

// SubmitPayment processes a payment for a checkout session.
// POST /api/payments
//
// The response statuses encode the retry contract: 429 means another request
// for the session is in flight (retry later), 409 means the session is
// already paid (do not retry), 500 means the attempt failed and the session
// may be retried fresh.
func (h *PaymentHandlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req payment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing required fields")
		return
	}

	result, err := h.coordinator.Process(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMissingFields):
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing required fields")
		case errors.Is(err, payment.ErrInProgress):
			WriteError(w, ctx, http.StatusTooManyRequests, ErrCodeInProgress, "Payment already in progress")
		case errors.Is(err, payment.ErrAlreadyProcessed):
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "Payment already processed")
		default:
			// Gateway and infrastructure failures share a wire response;
			// the distinction lives in the logs and metrics.
			slog.ErrorContext(ctx, "payment processing error", "session_id", req.SessionID, "error", err)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Payment processing failed")
		}
		return
	}

	writeJSON(w, ctx, http.StatusOK, SubmitPaymentResponse{
		Success:        true,
		PaymentID:      result.ID,
		Message:        "Payment processed successfully",
		ProcessingTime: result.ProcessingTime,
	})
}

// PaymentStatusNotFound is the body returned when no payment exists for a
// session.
type PaymentStatusNotFound struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PaymentStatus returns the stored payment result for a session.
// GET /api/payments?sessionId=...
func (h *PaymentHandlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Session ID required")
		return
	}

	result, found, err := h.coordinator.Status(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "payment status check failed", "session_id", sessionID, "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to check payment status")
		return
	}
	if !found {
		writeJSON(w, ctx, http.StatusNotFound, PaymentStatusNotFound{
			Status:  "not_found",
			Message: "No payment found for this session",
		})
		return
	}

	writeJSON(w, ctx, http.StatusOK, result)
}

// Routes dispatches /api/payments by method.
func (h *PaymentHandlers) Routes() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.SubmitPayment(w, r)
		case http.MethodGet:
			h.PaymentStatus(w, r)
		default:
			WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	})
}

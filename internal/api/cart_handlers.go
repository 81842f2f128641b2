package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hmkhan10/routebase-payments/internal/merchant"
	"github.com/hmkhan10/routebase-payments/internal/session"
)

// Cart actions accepted by the cart endpoint.
const (
	CartActionAdd    = "add"
	CartActionRemove = "remove"
	CartActionUpdate = "update"
	CartActionClear  = "clear"
)

// CartHandlers holds dependencies for cart HTTP handlers.
type CartHandlers struct {
	sessions  *session.Store
	merchants *merchant.Client
}

// NewCartHandlers creates a new CartHandlers instance. merchants may be nil,
// in which case plan-based cart limits are not enforced.
func NewCartHandlers(sessions *session.Store, merchants *merchant.Client) *CartHandlers {
	return &CartHandlers{sessions: sessions, merchants: merchants}
}

// CartRequest is the body for cart mutations.
type CartRequest struct {
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
	ItemID    string `json:"itemId"`
	Quantity  int64  `json:"quantity"`
}

// CartResponse is the storefront cart payload.
type CartResponse struct {
	Success    bool               `json:"success,omitempty"`
	CartItems  []session.CartItem `json:"cartItems"`
	TotalItems int64              `json:"totalItems"`
}

// UpdateCart applies a cart action to a checkout session.
// POST /api/cart
func (h *CartHandlers) UpdateCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.Action == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing required fields")
		return
	}

	sess, found, err := h.sessions.Get(ctx, req.SessionID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load session", "session_id", req.SessionID, "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Cart operation failed")
		return
	}
	if !found {
		WriteError(w, ctx, http.StatusNotFound, ErrCodeSessionNotFound, "Session not found")
		return
	}

	switch req.Action {
	case CartActionAdd:
		if req.ItemID == "" || req.Quantity <= 0 {
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Item ID and quantity required")
			return
		}
		if !h.withinPlanLimit(r, sess, req.Quantity) {
			WriteError(w, ctx, http.StatusForbidden, ErrCodeCartLimit, "Cart limit reached for merchant plan")
			return
		}
		sess.Add(req.ItemID, req.Quantity)

	case CartActionRemove:
		if req.ItemID == "" {
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Item ID required")
			return
		}
		sess.Remove(req.ItemID)

	case CartActionUpdate:
		if req.ItemID == "" || req.Quantity <= 0 {
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Item ID and quantity required")
			return
		}
		sess.SetQuantity(req.ItemID, req.Quantity)

	case CartActionClear:
		sess.Clear()

	default:
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid action")
		return
	}

	if err := h.sessions.Put(ctx, req.SessionID, sess); err != nil {
		slog.ErrorContext(ctx, "failed to store session", "session_id", req.SessionID, "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Cart operation failed")
		return
	}

	writeJSON(w, ctx, http.StatusOK, CartResponse{
		Success:    true,
		CartItems:  sess.CartItems,
		TotalItems: sess.TotalItems(),
	})
}

// withinPlanLimit consults the merchant backend for the session's plan and
// checks the cart-size limit. Backend unavailability fails open: cart limits
// are policy, not a correctness guarantee.
func (h *CartHandlers) withinPlanLimit(r *http.Request, sess *session.Session, adding int64) bool {
	if h.merchants == nil || sess.MerchantID == "" {
		return true
	}

	ctx := r.Context()
	m, err := h.merchants.GetMerchant(ctx, sess.MerchantID)
	if err != nil {
		if !errors.Is(err, merchant.ErrNotFound) {
			slog.WarnContext(ctx, "merchant lookup failed, skipping cart limit", "merchant_id", sess.MerchantID, "error", err)
		}
		return true
	}

	return sess.TotalItems()+adding <= m.MaxCartItems()
}

// GetCart returns the cart contents of a checkout session.
// GET /api/cart?sessionId=...
func (h *CartHandlers) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Session ID required")
		return
	}

	sess, found, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load session", "session_id", sessionID, "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch cart")
		return
	}
	if !found {
		WriteError(w, ctx, http.StatusNotFound, ErrCodeSessionNotFound, "Session not found")
		return
	}

	items := sess.CartItems
	if items == nil {
		items = []session.CartItem{}
	}
	writeJSON(w, ctx, http.StatusOK, CartResponse{
		CartItems:  items,
		TotalItems: sess.TotalItems(),
	})
}

// Routes dispatches /api/cart by method.
func (h *CartHandlers) Routes() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.UpdateCart(w, r)
		case http.MethodGet:
			h.GetCart(w, r)
		default:
			WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	})
}

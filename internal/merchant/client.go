// Package merchant is a typed client for the RouteBase backend, the external
// system of record for merchants, plans, and transactions. The coordinator's
// correctness never depends on this backend; it is consulted for plan-based
// policy such as cart-size limits and for checkout session persistence.
package merchant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Merchant tiers as reported by the backend.
const (
	TierFree = "FREE"
	TierPro  = "PRO"
)

// Cart-size limits by tier. The backend gates features by plan; the free tier
// gets a small cart, paid tiers effectively unbounded.
const (
	freeTierCartLimit = 10
	proTierCartLimit  = 100
)

var (
	// ErrUnavailable indicates the backend could not be reached or answered
	// with a server error. Callers may fall back to degraded behavior.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrNotFound indicates the backend has no record for the identifier.
	ErrNotFound = errors.New("merchant not found")
)

// Merchant is a merchant record as returned by the backend data endpoint.
type Merchant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Tier      string    `json:"tier"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxCartItems returns the cart-size limit for the merchant's tier.
func (m *Merchant) MaxCartItems() int64 {
	if m.Tier == TierPro {
		return proTierCartLimit
	}
	return freeTierCartLimit
}

// CheckoutSession is the document forwarded to the backend when a checkout
// session is created.
type CheckoutSession struct {
	ID             string         `json:"id"`
	MerchantID     string         `json:"merchant_id"`
	Items          []CheckoutItem `json:"items"`
	Total          float64        `json:"total"`
	PlatformFee    float64        `json:"platform_fee"`
	GatewayFee     float64        `json:"gateway_fee"`
	MerchantPayout float64        `json:"merchant_payout"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CheckoutItem is a priced line item in a checkout session.
type CheckoutItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// CheckoutAck is the backend's acknowledgement of a created session.
type CheckoutAck struct {
	CheckoutURL string `json:"checkout_url"`
}

// Client talks to the RouteBase backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. A zero timeout defaults to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetMerchant fetches the merchant record for id.
func (c *Client) GetMerchant(ctx context.Context, id string) (*Merchant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/merchant/data", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+id)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch merchant %q: backend returned %d", id, resp.StatusCode)
	}

	var m Merchant
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode merchant %q: %w", id, err)
	}
	return &m, nil
}

// CreateCheckoutSession forwards a checkout session to the backend for
// persistence. The returned ack carries the hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, cs *CheckoutSession) (*CheckoutAck, error) {
	body, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("encode checkout session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/checkout/session", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create checkout session: backend returned %d", resp.StatusCode)
	}

	var ack CheckoutAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode checkout ack: %w", err)
	}
	return &ack, nil
}

// GetCheckoutSession fetches a stored checkout session by session or merchant
// identifier and relays the backend document verbatim.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID, merchantID string) (json.RawMessage, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if merchantID != "" {
		q.Set("merchant_id", merchantID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/checkout/session?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch checkout session: backend returned %d", resp.StatusCode)
	}

	var doc json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return doc, nil
}

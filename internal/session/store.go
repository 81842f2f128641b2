// Package session stores checkout sessions and their cart contents in the
// shared key-value store, bounded by a session TTL.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/kv"
)

const keyPrefix = "session:"

// DefaultTTL is the one hour session retention window.
const DefaultTTL = time.Hour

// CartItem is a product line in a checkout session's cart.
type CartItem struct {
	ProductID string    `json:"productId"`
	Quantity  int64     `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Session is the server-side state of a checkout session.
type Session struct {
	MerchantID string     `json:"merchantId,omitempty"`
	CartItems  []CartItem `json:"cartItems"`
}

// TotalItems returns the summed quantity across all cart lines.
func (s *Session) TotalItems() int64 {
	var total int64
	for _, item := range s.CartItems {
		total += item.Quantity
	}
	return total
}

// Add merges quantity into an existing line for productID or appends a new
// line.
func (s *Session) Add(productID string, quantity int64) {
	for i := range s.CartItems {
		if s.CartItems[i].ProductID == productID {
			s.CartItems[i].Quantity += quantity
			return
		}
	}
	s.CartItems = append(s.CartItems, CartItem{
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	})
}

// Remove drops the cart line for productID, if present.
func (s *Session) Remove(productID string) {
	items := s.CartItems[:0]
	for _, item := range s.CartItems {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	s.CartItems = items
}

// SetQuantity replaces the quantity of an existing line. Unknown products are
// ignored rather than created.
func (s *Session) SetQuantity(productID string, quantity int64) {
	for i := range s.CartItems {
		if s.CartItems[i].ProductID == productID {
			s.CartItems[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart.
func (s *Session) Clear() {
	s.CartItems = nil
}

// Store persists sessions in the shared key-value store. It makes no
// concurrency claims beyond the store's own; cart updates are last-write-wins.
type Store struct {
	store kv.Store
	ttl   time.Duration
}

// NewStore creates a session store with the given retention TTL.
func NewStore(store kv.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{store: store, ttl: ttl}
}

// Get returns the session for id. A miss returns ok=false with a nil error.
func (s *Store) Get(ctx context.Context, id string) (*Session, bool, error) {
	data, ok, err := s.store.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, false, fmt.Errorf("read session %q: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, fmt.Errorf("decode session %q: %w", id, err)
	}
	return &sess, true, nil
}

// Put stores the session under id, resetting its TTL.
func (s *Store) Put(ctx context.Context, id string, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", id, err)
	}
	if err := s.store.Set(ctx, keyPrefix+id, data, s.ttl); err != nil {
		return fmt.Errorf("store session %q: %w", id, err)
	}
	return nil
}

// Delete removes the session for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}

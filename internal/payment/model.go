// Package payment implements the payment coordination core: a lock-guarded,
// idempotent processing flow that guarantees at most one successful payment
// execution per checkout session, even under concurrent duplicate requests.
package payment

import (
	"fmt"
	"math/rand"
	"time"
)

// StatusCompleted is the terminal status of a successfully processed payment.
const StatusCompleted = "completed"

// Item is a single cart line in a payment request.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// Request is a payment submission for a checkout session. SessionID doubles
// as the idempotency key for the whole flow.
type Request struct {
	SessionID   string `json:"sessionId"`
	Items       []Item `json:"items"`
	TotalAmount int64  `json:"totalAmount"` // minor currency units
}

// Valid reports whether all required fields are present. Requests failing
// validation are rejected before any lock is attempted.
func (r Request) Valid() bool {
	return r.SessionID != "" && len(r.Items) > 0 && r.TotalAmount > 0
}

// Result is the durable outcome of a payment attempt. At most one Result is
// ever associated with a given session; that is the idempotency guarantee
// this package exists to enforce.
type Result struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Items          []Item    `json:"items"`
	TotalAmount    int64     `json:"totalAmount"`
	Status         string    `json:"status"`
	ProcessedAt    time.Time `json:"processedAt"`
	ProcessingTime int64     `json:"processingTime"` // milliseconds
}

// newPaymentID synthesizes a unique payment identifier.
func newPaymentID() string {
	return fmt.Sprintf("pay_%d_%s", time.Now().UnixMilli(), randBase36(9))
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}

package payment

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// Gateway executes the actual charge for a payment request. The coordinator's
// state machine is gateway-agnostic: swapping the simulator for a real
// processor changes nothing about locking or idempotency.
type Gateway interface {
	// Charge attempts to collect payment for req. It returns the gateway
	// processing time on success. A charge error is a recoverable outcome;
	// the session may be retried once the coordinator releases its lock.
	Charge(ctx context.Context, req Request) (time.Duration, error)
}

// ErrChargeDeclined is returned by gateways when the charge itself fails, as
// opposed to an infrastructure fault reaching the gateway.
var ErrChargeDeclined = errors.New("charge declined")

// SimulatedGateway reproduces a real gateway's non-determinism: variable
// processing latency and a nonzero failure probability. It is the default in
// development and load-test deployments.
type SimulatedGateway struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
}

// NewSimulatedGateway creates a simulator with typical gateway
// characteristics: 500-2500ms latency and a 10% failure rate.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{
		MinLatency:  500 * time.Millisecond,
		MaxLatency:  2500 * time.Millisecond,
		FailureRate: 0.1,
	}
}

// Charge sleeps for a random latency within the configured bounds and fails
// with probability FailureRate. It runs to completion; the lock TTL, not
// context cancellation, bounds a stuck charge.
func (g *SimulatedGateway) Charge(ctx context.Context, req Request) (time.Duration, error) {
	latency := g.MinLatency
	if g.MaxLatency > g.MinLatency {
		latency += time.Duration(rand.Int63n(int64(g.MaxLatency - g.MinLatency)))
	}
	time.Sleep(latency)

	if rand.Float64() < g.FailureRate {
		return 0, ErrChargeDeclined
	}
	return latency, nil
}

// StripeGateway charges through Stripe PaymentIntents. Selected via the
// gateway config key in production deployments.
type StripeGateway struct {
	currency string
}

// NewStripeGateway creates a Stripe-backed gateway with the given API key and
// ISO currency code.
func NewStripeGateway(apiKey, currency string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{currency: currency}
}

// Charge creates a PaymentIntent for the request amount. The session ID is
// attached as metadata so webhook reconciliation can find the record.
func (g *StripeGateway) Charge(ctx context.Context, req Request) (time.Duration, error) {
	start := time.Now()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.TotalAmount),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("session_id", req.SessionID)

	if _, err := paymentintent.New(params); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

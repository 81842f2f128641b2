package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/idempotency"
	"github.com/hmkhan10/routebase-payments/internal/lock"
)

// Typed outcomes of Process. Handlers map these to the wire contract;
// anything else is an infrastructure failure.
var (
	// ErrMissingFields indicates the request failed validation. No lock is
	// attempted for invalid requests.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInProgress indicates another request currently holds the
	// processing lock for this session.
	ErrInProgress = errors.New("payment already in progress")

	// ErrAlreadyProcessed indicates a completed payment already exists for
	// this session.
	ErrAlreadyProcessed = errors.New("payment already processed")

	// ErrProcessingFailed indicates the gateway charge failed. Nothing is
	// cached, so the session may be retried by a fresh request.
	ErrProcessingFailed = errors.New("payment processing failed")
)

// Default TTLs: a 30 second processing lock and a 1 hour result retention
// window.
const (
	DefaultLockTTL   = 30 * time.Second
	DefaultResultTTL = time.Hour
)

// Coordinator enforces at-most-one successful payment execution per session.
// Two lines of defense serialize concurrent duplicates: the per-session lock
// rejects requests racing an in-flight attempt, and the idempotency cache
// rejects requests arriving after a completed attempt released its lock.
type Coordinator struct {
	locks     *lock.Manager
	cache     *idempotency.Cache
	gateway   Gateway
	metrics   *Metrics
	lockTTL   time.Duration
	resultTTL time.Duration
}

// NewCoordinator wires a Coordinator from its collaborators. All dependencies
// are explicit; there is no shared singleton store access. metrics may be nil.
func NewCoordinator(locks *lock.Manager, cache *idempotency.Cache, gateway Gateway, metrics *Metrics, lockTTL, resultTTL time.Duration) *Coordinator {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	return &Coordinator{
		locks:     locks,
		cache:     cache,
		gateway:   gateway,
		metrics:   metrics,
		lockTTL:   lockTTL,
		resultTTL: resultTTL,
	}
}

// sessionKey is shared by the lock and the result cache; each component adds
// its own namespace prefix, so the two never collide in the store.
func sessionKey(sessionID string) string {
	return "payment:" + sessionID
}

// Process runs the payment protocol for req.
//
// Ordering constraints that must not be reshuffled:
//   - the idempotency check happens after lock acquisition, so it cannot race
//     a concurrent writer of the same session;
//   - the result is cached before the lock is released, so a request entering
//     after this one's release always observes the completed result;
//   - the lock is released on every exit path past acquisition.
func (c *Coordinator) Process(ctx context.Context, req Request) (*Result, error) {
	if !req.Valid() {
		c.metrics.RecordOutcome(OutcomeMissingFields)
		return nil, ErrMissingFields
	}

	key := sessionKey(req.SessionID)
	token, ok, err := c.locks.Acquire(ctx, key, c.lockTTL)
	if err != nil {
		c.metrics.RecordOutcome(OutcomeStoreError)
		return nil, err
	}
	if !ok {
		c.metrics.RecordLockConflict()
		c.metrics.RecordOutcome(OutcomeLockDenied)
		return nil, ErrInProgress
	}

	defer func() {
		// WithoutCancel: the lock must be released even if the request
		// context died mid-processing. The lock's own TTL remains the
		// final safety net if the release itself fails.
		released, relErr := c.locks.Release(context.WithoutCancel(ctx), key, token)
		if relErr != nil {
			slog.ErrorContext(ctx, "failed to release payment lock", "session_id", req.SessionID, "error", relErr)
		} else if !released {
			slog.WarnContext(ctx, "payment lock no longer owned at release", "session_id", req.SessionID)
		}
	}()

	var existing Result
	hit, err := c.cache.Get(ctx, key, &existing)
	if err != nil {
		c.metrics.RecordOutcome(OutcomeStoreError)
		return nil, err
	}
	if hit {
		c.metrics.RecordOutcome(OutcomeAlreadyProcessed)
		return nil, ErrAlreadyProcessed
	}

	elapsed, err := c.gateway.Charge(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "gateway charge failed", "session_id", req.SessionID, "error", err)
		c.metrics.RecordOutcome(OutcomeGatewayFailed)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	result := &Result{
		ID:             newPaymentID(),
		SessionID:      req.SessionID,
		Items:          req.Items,
		TotalAmount:    req.TotalAmount,
		Status:         StatusCompleted,
		ProcessedAt:    time.Now().UTC(),
		ProcessingTime: elapsed.Milliseconds(),
	}

	if err := c.cache.Put(ctx, key, result, c.resultTTL); err != nil {
		c.metrics.RecordOutcome(OutcomeStoreError)
		return nil, err
	}

	c.metrics.RecordOutcome(OutcomeCompleted)
	c.metrics.ObserveProcessing(elapsed)
	return result, nil
}

// Status returns the cached result for a session, if one exists. A miss is
// not an error.
func (c *Coordinator) Status(ctx context.Context, sessionID string) (*Result, bool, error) {
	var result Result
	hit, err := c.cache.Get(ctx, sessionKey(sessionID), &result)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		return nil, false, nil
	}
	return &result, true, nil
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shopmind/shopmind/pkg/logger"
)

// Policy controls the backoff schedule for a fallible remote operation.
// Delays double on every attempt starting from InitialDelay and are capped at
// MaxDelay. No jitter is applied: backoff is deterministic, which keeps tests
// exact but means concurrent retries against a shared backend synchronize.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// ExhaustedError wraps the last underlying failure once every attempt has
// been consumed. The root cause stays reachable through errors.Unwrap.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// retryable is implemented by errors that know whether a repeat attempt can
// succeed (e.g. commerce API errors carrying an HTTP status).
type retryable interface {
	Retryable() bool
}

// IsRetryable classifies a failure as transient. Timeouts and transport
// errors retry; everything else propagates immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Do executes op under the policy, retrying transient failures with a
// doubling, capped, jitter-free backoff. Non-retryable errors propagate
// unchanged; exhaustion returns an *ExhaustedError wrapping the last cause.
func Do(ctx context.Context, policy Policy, name string, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultPolicy().MaxAttempts
	}
	initial := policy.InitialDelay
	if initial <= 0 {
		initial = DefaultPolicy().InitialDelay
	}
	backoff := retry.NewExponential(initial)
	if policy.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(policy.MaxDelay, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff) // #nosec G115 -- attempts sanitized above

	log := logger.FromContext(ctx)
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callErr := op(ctx)
		if callErr == nil {
			return nil
		}
		if IsRetryable(callErr) {
			log.Debug("transient failure, will retry",
				"operation", name,
				"attempt", attempt,
				"error", callErr,
			)
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err == nil {
		return nil
	}
	// retry.Do returns the bare cause both on exhaustion and on a
	// non-retryable failure; only the former is wrapped.
	if attempt >= attempts && IsRetryable(err) {
		return &ExhaustedError{Attempts: attempt, Cause: err}
	}
	return err
}

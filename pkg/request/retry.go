package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy is a reusable retry policy: attempts per endpoint with exponential
// backoff between them. Every external call in the pipeline goes through
// one of these rather than re-implementing retry control flow per stage.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy matches the documented stage policy: 3 attempts, 2s base,
// doubling (2s/4s/8s), capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
	}
}

// permanentError marks an error that must never be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops immediately: the call succeeded at the
// transport level and the answer will not change on retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether an error is worth another attempt.
// Rate limiting and server errors are; client errors (bad request,
// not found) are not, and neither are Permanent errors.
func Retryable(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	// Timeouts, connection resets and the like.
	return !errors.Is(err, context.Canceled)
}

// Do runs fn with up to MaxAttempts attempts, sleeping with exponential
// backoff between failures. The sleep is context-aware: it blocks only the
// single exploration in progress and aborts on cancellation.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == p.MaxAttempts {
			break
		}

		slog.Warn("Attempt failed, backing off",
			"attempt", attempt, "max", p.MaxAttempts, "delay", delay, "error", lastErr)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
		delay = p.nextDelay(delay)
	}
	return lastErr
}

// DoWithEndpoints tries fn against each endpoint in order, giving every
// endpoint its own independent attempt budget. The stage fails only when
// all configured endpoints are exhausted.
func (p Policy) DoWithEndpoints(ctx context.Context, endpoints []string, fn func(ctx context.Context, endpoint string) error) error {
	if len(endpoints) == 0 {
		return errors.New("no endpoints configured")
	}

	var lastErr error
	for _, endpoint := range endpoints {
		err := p.Do(ctx, func(ctx context.Context) error {
			return fn(ctx, endpoint)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		slog.Warn("Endpoint exhausted, falling back", "endpoint", endpoint, "error", err)
	}
	return fmt.Errorf("all endpoints exhausted: %w", lastErr)
}

func (p Policy) nextDelay(current time.Duration) time.Duration {
	mult := p.Multiplier
	if mult <= 1 {
		mult = 2
	}
	next := time.Duration(float64(current) * mult)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

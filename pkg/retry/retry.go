// Package retry runs remote calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy holds backoff settings
type Policy struct {
	MaxAttempts int           // 0 means a single attempt
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Jitter      float64 // fraction of the wait, 0-1
}

// DefaultPolicy returns the backoff used for remote listing and fetching
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// TransientError marks a failure worth another attempt
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err so that Do retries it
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err was marked with Transient
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Do calls fn until it succeeds, returns a permanent error, or attempts run out.
// The returned error has the transient marker removed.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for calls that produce a result
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	var transient *TransientError
	if errors.As(lastErr, &transient) {
		return zero, transient.Err
	}
	return zero, lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	wait := float64(p.InitialWait) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxWait > 0 && wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (rand.Float64()*2 - 1)
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// Package retry provides a generic retry mechanism with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config holds the retry configuration options.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay increases after each retry.
	Multiplier float64

	// JitterFactor adds up to this fraction of the delay as random jitter (0.0 to 1.0).
	JitterFactor float64

	// RetryIf decides if an error is worth another attempt.
	// If nil, all errors are retried.
	RetryIf func(error) bool
}

// BackendReads is tuned for idempotent reads against the flight backend.
// Searches and commits are never retried: a repeated search would race the
// session's sequence numbers and a repeated commit is not idempotent.
var BackendReads = Config{
	MaxAttempts:  3,
	InitialDelay: 150 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.2,
}

// Do runs fn until it succeeds, the error is not retryable, attempts run out,
// or ctx is done. It returns the last result and error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var (
		result  T
		lastErr error
	)
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(lastErr) {
			return result, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(sleepTime(delay, cfg.MaxDelay, cfg.JitterFactor)):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return result, lastErr
}

// sleepTime computes the sleep duration with jitter and max cap.
func sleepTime(delay, maxDelay time.Duration, jitterFactor float64) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(delay) * jitterFactor)
	d := delay + jitter
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

// WithMaxAttempts returns a new config with the given max attempts.
func (c Config) WithMaxAttempts(n int) Config {
	c.MaxAttempts = n
	return c
}

// WithRetryIf returns a new config with the given RetryIf predicate.
func (c Config) WithRetryIf(fn func(error) bool) Config {
	c.RetryIf = fn
	return c
}

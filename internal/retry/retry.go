// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"math"
	"time"
)

// Func is an operation that can be retried
type Func func() error

// Classifier reports whether an error is worth retrying
type Classifier func(error) bool

// Options configures a retry loop
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Classifier      Classifier

	// OnRetry, if set, observes each failed attempt that will be retried
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultOptions returns a set of sensible default retry options
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// Do executes fn until it succeeds, a non-retryable error occurs, the
// attempts run out or ctx is cancelled. It returns the last error.
func Do(ctx context.Context, fn Func, opts Options) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if opts.Classifier != nil && !opts.Classifier(err) {
			return err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		wait := Backoff(attempt, opts)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Backoff returns the wait after the given failed attempt (1-based)
func Backoff(attempt int, opts Options) time.Duration {
	if attempt <= 1 {
		return min(opts.InitialInterval, opts.MaxInterval)
	}
	interval := float64(opts.InitialInterval) * math.Pow(opts.Multiplier, float64(attempt-1))
	if interval > float64(opts.MaxInterval) {
		return opts.MaxInterval
	}
	return time.Duration(interval)
}

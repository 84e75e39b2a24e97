package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrRetryExhausted is wrapped, together with the last backend error, when
// every attempt of a retried operation failed.
var ErrRetryExhausted = errors.New("storage: all retry attempts exhausted")

// RetryConfig holds the tuning parameters for WithRetry. Zero values are
// replaced with the defaults documented below.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	// Default: 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff.
	// Default: 5s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction * backoff].
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether err should trigger another attempt.
	// Default: Retryable.
	RetryableFunc func(error) bool
}

// Retryable reports whether err is a backend failure worth another attempt.
// Invalid keys, unencodable values and context errors are permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrUnencodable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		writeErr *WriteError
		readErr  *ReadError
		clearErr *ClearError
	)
	return errors.As(err, &writeErr) || errors.As(err, &readErr) || errors.As(err, &clearErr)
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 5 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = Retryable
	}
}

// computeBackoff returns the wait before retry number attempt (0-indexed).
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// Retrying wraps a Storage and repeats failed operations with exponential
// backoff. A Load that returns Absent or Corrupt is a success and is never
// retried.
type Retrying struct {
	next   Storage
	config RetryConfig
}

var _ Storage = (*Retrying)(nil)

// WithRetry decorates s with retries. A negative MaxRetries returns s
// unchanged.
func WithRetry(s Storage, config RetryConfig) Storage {
	if config.MaxRetries < 0 {
		return s
	}
	applyRetryDefaults(&config)
	return &Retrying{next: s, config: config}
}

// Unwrap returns the decorated Storage.
func (r *Retrying) Unwrap() Storage {
	return r.next
}

func (r *Retrying) Save(ctx context.Context, key string, value any) error {
	return r.do(ctx, func() error {
		return r.next.Save(ctx, key, value)
	})
}

func (r *Retrying) Load(ctx context.Context, key string) (Result, error) {
	var result Result
	err := r.do(ctx, func() error {
		var err error
		result, err = r.next.Load(ctx, key)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (r *Retrying) Clear(ctx context.Context) error {
	return r.do(ctx, func() error {
		return r.next.Clear(ctx)
	})
}

func (r *Retrying) do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(computeBackoff(r.config, attempt-1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryableFunc(err) {
			return err
		}
	}

	return fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, r.config.MaxRetries, lastErr)
}

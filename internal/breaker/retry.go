package breaker

import (
	"context"
	"math/rand"
	"time"

	"github.com/samfms/core-gateway/internal/errs"
)

// RetryConfig parameterises the exponential backoff retry wrapper.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultRetryConfig matches spec §4.5's defaults: base 1s, max 30s,
// factor 2.0, up to 3 attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: true}
}

// Do runs fn, retrying only errs.Kind values that are Retryable, with
// exponential backoff (factor 2.0) up to cfg.MaxAttempts. It stops
// early if ctx is done or fn returns a non-retryable error.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := delay
			if cfg.Jitter {
				wait = time.Duration(float64(wait) * (0.5 + rand.Float64()*0.5))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !errs.As(err).Retryable() {
			return err
		}
	}

	return lastErr
}

package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samfms/core-gateway/internal/errs"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: false}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.BrokerUnavailable, "broker down")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errs.New(errs.ValidationError, "bad input")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errs.New(errs.Timeout, "no reply")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	err := Do(ctx, cfg, func(ctx context.Context) error {
		attempts++
		return errs.New(errs.Timeout, "no reply")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "first attempt always runs; the cancellation is observed before the backoff sleep")
}

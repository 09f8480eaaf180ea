package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectBreakerOpensAfterThreshold(t *testing.T) {
	b := newConnectBreaker(3, time.Minute)

	assert.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow())
}

func TestConnectBreakerRecoversAfterCooldown(t *testing.T) {
	b := newConnectBreaker(1, 10*time.Millisecond)

	b.RecordFailure()
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
}

func TestConnectBreakerSuccessResetsFailures(t *testing.T) {
	b := newConnectBreaker(2, time.Minute)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	assert.True(t, b.Allow(), "a single post-reset failure must not trip the breaker")
}

func TestBackoffDelayIsBoundedAndGrows(t *testing.T) {
	base := 2 * time.Second
	max := 60 * time.Second

	first := backoffDelay(base, max, 0)
	assert.GreaterOrEqual(t, first, time.Duration(float64(base)*0.5))
	assert.LessOrEqual(t, first, base)

	capped := backoffDelay(base, max, 20)
	assert.LessOrEqual(t, capped, max)
}

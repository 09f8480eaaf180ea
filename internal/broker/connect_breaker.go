package broker

import (
	"sync"
	"time"
)

// connectBreaker prevents reconnect storms: after consecutiveFailures
// consecutive connect failures it refuses further attempts for a
// cooldown window (spec §4.1's "local circuit breaker"). It is
// independent of the per-destination-service breakers in internal/breaker.
type connectBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	cooldown         time.Duration
	failures         int
	openedAt         time.Time
}

func newConnectBreaker(failureThreshold int, cooldown time.Duration) *connectBreaker {
	return &connectBreaker{failureThreshold: failureThreshold, cooldown: cooldown}
}

// Allow reports whether a connect attempt may proceed right now.
func (b *connectBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.failureThreshold {
		return true
	}
	if time.Since(b.openedAt) >= b.cooldown {
		b.failures = 0
		return true
	}
	return false
}

// RecordFailure increments the failure count, opening the cooldown once
// the threshold is reached.
func (b *connectBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures == b.failureThreshold {
		b.openedAt = time.Now()
	}
}

// RecordSuccess resets the failure count.
func (b *connectBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

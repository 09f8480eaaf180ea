// Package breaker implements a per-destination-service circuit breaker
// and an accompanying exponential-backoff retry wrapper (spec §4.5).
package breaker

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Breaker guards calls to a single destination service. It opens after
// FailureThreshold consecutive failures, stays open for OpenTimeout,
// then allows up to HalfOpenMaxCalls trial calls before deciding
// whether to close or re-open.
type Breaker struct {
	name             string
	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxCalls int

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenCalls   int
}

// New builds a Breaker for service name in the CLOSED state.
func New(name string, failureThreshold int, openTimeout time.Duration, halfOpenMaxCalls int) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if halfOpenMaxCalls <= 0 {
		halfOpenMaxCalls = 1
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
		state:            Closed,
	}
}

// State returns the current state, transitioning OPEN to HALF_OPEN if
// the open timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.openTimeout {
		b.state = HalfOpen
		b.halfOpenCalls = 0
	}
}

// Allow reports whether a call may proceed now, and reserves a trial
// slot if the breaker is HALF_OPEN.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenCalls < b.halfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	default: // Open
		return false
	}
}

// RecordSuccess reports a successful call. In HALF_OPEN, a success
// closes the breaker; in CLOSED it resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Closed
		b.consecutiveFail = 0
		b.halfOpenCalls = 0
	case Closed:
		b.consecutiveFail = 0
	}
}

// RecordFailure reports a failed call. In HALF_OPEN, any failure
// reopens the breaker; in CLOSED, FailureThreshold consecutive
// failures open it.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.open()
	case Closed:
		b.consecutiveFail++
		if b.consecutiveFail >= b.failureThreshold {
			b.open()
		}
	}
}

func (b *Breaker) open() {
	b.state = Open
	b.openedAt = time.Now()
	b.consecutiveFail = 0
	b.halfOpenCalls = 0
}

// Name returns the destination service this breaker guards.
func (b *Breaker) Name() string { return b.name }

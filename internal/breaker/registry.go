package breaker

import (
	"sync"
	"time"
)

// Registry hands out one Breaker per destination service, created
// lazily with shared thresholds.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxCalls int
}

// NewRegistry builds a Registry that constructs breakers with the
// given thresholds on first use.
func NewRegistry(failureThreshold int, openTimeout time.Duration, halfOpenMaxCalls int) *Registry {
	return &Registry{
		breakers:         map[string]*Breaker{},
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
	}
}

// Get returns the Breaker for service, creating it if necessary.
func (r *Registry) Get(service string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[service]; ok {
		return b
	}
	b := New(service, r.failureThreshold, r.openTimeout, r.halfOpenMaxCalls)
	r.breakers[service] = b
	return b
}

// Snapshot returns the current state of every breaker created so far,
// keyed by service name.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}

// Package correlation tracks in-flight requests by correlation ID so
// the response consumer (which only sees exchange/queue traffic) can
// hand a reply back to the goroutine that is awaiting it.
package correlation

import (
	"context"
	"sync"
	"time"

	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/errs"
)

type pending struct {
	replyCh  chan envelope.Response
	deadline time.Time
	resolved bool
}

// Manager is a registry of pending requests keyed by correlation ID.
// Each entry resolves at most once: whichever of Resolve or the
// sweeper's deadline expiry fires first wins.
type Manager struct {
	mu         sync.Mutex
	entries    map[string]*pending
	maxPending int

	stopCh chan struct{}
}

// NewManager builds a Manager and starts its 1s deadline sweeper.
// maxPending <= 0 means unbounded.
func NewManager(maxPending int) *Manager {
	m := &Manager{
		entries:    map[string]*pending{},
		maxPending: maxPending,
		stopCh:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Register reserves correlationID and returns the channel that will
// receive its eventual response. Callers must not register the same
// ID twice. Returns errs.BackpressureRejected if maxPending is set and
// already reached.
func (m *Manager) Register(correlationID string, timeout time.Duration) (<-chan envelope.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxPending > 0 && len(m.entries) >= m.maxPending {
		return nil, errs.New(errs.BackpressureRejected, "too many pending requests")
	}

	p := &pending{
		replyCh:  make(chan envelope.Response, 1),
		deadline: time.Now().Add(timeout),
	}
	m.entries[correlationID] = p
	return p.replyCh, nil
}

// Resolve delivers resp to the awaiter registered under resp's
// correlation ID, if one is still pending. It is a no-op if the entry
// already resolved (deadline or a prior Resolve).
func (m *Manager) Resolve(correlationID string, resp envelope.Response) bool {
	m.mu.Lock()
	p, ok := m.entries[correlationID]
	if !ok || p.resolved {
		m.mu.Unlock()
		return false
	}
	p.resolved = true
	delete(m.entries, correlationID)
	m.mu.Unlock()

	p.replyCh <- resp
	return true
}

// Cancel removes a pending entry without resolving it, e.g. when the
// caller context is done before a reply or deadline arrives.
func (m *Manager) Cancel(correlationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, correlationID)
}

// Pending returns the number of requests currently awaiting a reply.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper goroutine.
func (m *Manager) Close() {
	close(m.stopCh)
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.expireOverdue()
		}
	}
}

func (m *Manager) expireOverdue() {
	now := time.Now()

	m.mu.Lock()
	var expired []*pending
	for id, p := range m.entries {
		if now.After(p.deadline) {
			p.resolved = true
			expired = append(expired, p)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, p := range expired {
		p.replyCh <- *envelope.Failure("", string(errs.Timeout), "request timed out waiting for a reply")
	}
}

// Await blocks on replyCh until a reply arrives or ctx is cancelled,
// in which case the pending entry for correlationID is cancelled.
func Await(ctx context.Context, m *Manager, correlationID string, replyCh <-chan envelope.Response) (envelope.Response, error) {
	select {
	case resp := <-replyCh:
		return resp, nil
	case <-ctx.Done():
		m.Cancel(correlationID)
		return envelope.Response{}, errs.Wrap(errs.Timeout, "request cancelled", ctx.Err())
	}
}

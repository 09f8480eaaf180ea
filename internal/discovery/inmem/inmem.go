// Package inmem implements discovery.Registry in memory, for tests and
// local development without a Consul agent.
package inmem

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samfms/core-gateway/internal/discovery"
)

// ttl is how long an instance is considered alive without a heartbeat,
// simulating the 5s TTL check the consul registry registers.
const ttl = 5 * time.Second

type instance struct {
	hostPort   string
	lastActive time.Time
}

// Registry is an in-memory discovery.Registry.
type Registry struct {
	mu   sync.RWMutex
	svcs map[string]map[string]*instance
}

// NewRegistry builds an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{svcs: map[string]map[string]*instance{}}
}

// Register records an instance of serviceName at hostPort.
func (r *Registry) Register(ctx context.Context, instanceID, serviceName, hostPort string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.svcs[serviceName]; !ok {
		r.svcs[serviceName] = map[string]*instance{}
	}
	r.svcs[serviceName][instanceID] = &instance{hostPort: hostPort, lastActive: time.Now()}
	return nil
}

// Deregister removes an instance.
func (r *Registry) Deregister(ctx context.Context, instanceID, serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.svcs[serviceName], instanceID)
	return nil
}

// HealthCheck refreshes the instance's last-active timestamp.
func (r *Registry) HealthCheck(instanceID, serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instances, ok := r.svcs[serviceName]
	if !ok {
		return errors.New("service is not registered yet")
	}
	inst, ok := instances[instanceID]
	if !ok {
		return errors.New("service instance is not registered yet")
	}
	inst.lastActive = time.Now()
	return nil
}

// Discover returns host:port for instances whose heartbeat is within
// ttl of now.
func (r *Registry) Discover(ctx context.Context, serviceName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := r.svcs[serviceName]
	if len(instances) == 0 {
		return nil, errors.New("no service address found")
	}

	cutoff := time.Now().Add(-ttl)
	var out []string
	for _, inst := range instances {
		if inst.lastActive.Before(cutoff) {
			continue
		}
		out = append(out, inst.hostPort)
	}
	if len(out) == 0 {
		return nil, errors.New("no healthy service instances")
	}
	return out, nil
}

var _ discovery.Registry = (*Registry)(nil)

// Package discovery lets a process register itself and look up the live
// instances of a service. The detailed health view (internal/health) does
// not query it, so instance counts are not part of that report. It is not
// on the request path: dispatch always goes through the broker (§1), never
// a direct connection to a discovered address.
package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Registry is the service-discovery contract. Implementations: consul
// (production) and inmem (tests/local dev), a swappable-backend pattern.
type Registry interface {
	Register(ctx context.Context, instanceID, serviceName, hostPort string) error
	Deregister(ctx context.Context, instanceID, serviceName string) error
	Discover(ctx context.Context, serviceName string) ([]string, error)
	HealthCheck(instanceID, serviceName string) error
}

// GenerateInstanceID builds a unique instance id for registration.
func GenerateInstanceID(serviceName string) string {
	return fmt.Sprintf("%s-%d", serviceName, rand.New(rand.NewSource(time.Now().UnixNano())).Int())
}

// Package consul implements discovery.Registry against a Consul agent.
package consul

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"github.com/samfms/core-gateway/internal/discovery"
)

// Registry is a Consul-backed discovery.Registry.
type Registry struct {
	client *consul.Client
}

// NewRegistry dials the Consul agent at addr.
func NewRegistry(addr string) (*Registry, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = addr

	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}

	return &Registry{client: client}, nil
}

// Register registers instanceID/serviceName at hostPort with a 5s TTL
// check that deregisters the service 10s after it stops ticking.
func (r *Registry) Register(ctx context.Context, instanceID, serviceName, hostPort string) error {
	parts := strings.Split(hostPort, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid hostPort %q, expected host:port", hostPort)
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid port in %q: %w", hostPort, err)
	}

	return r.client.Agent().ServiceRegister(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: parts[0],
		Port:    port,
		Check: &consul.AgentServiceCheck{
			CheckID:                        instanceID,
			TTL:                            "5s",
			DeregisterCriticalServiceAfter: "10s",
		},
	})
}

// Deregister removes the service registration.
func (r *Registry) Deregister(ctx context.Context, instanceID, serviceName string) error {
	return r.client.Agent().ServiceDeregister(instanceID)
}

// Discover returns host:port for every healthy instance of serviceName.
func (r *Registry) Discover(ctx context.Context, serviceName string) ([]string, error) {
	services, _, err := r.client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("querying consul health for %s: %w", serviceName, err)
	}

	addresses := make([]string, 0, len(services))
	for _, svc := range services {
		addresses = append(addresses, fmt.Sprintf("%s:%d", svc.Service.Address, svc.Service.Port))
	}

	return addresses, nil
}

// HealthCheck refreshes the TTL check for instanceID.
func (r *Registry) HealthCheck(instanceID, serviceName string) error {
	return r.client.Agent().UpdateTTL(instanceID, "online", consul.HealthPassing)
}

var _ discovery.Registry = (*Registry)(nil)

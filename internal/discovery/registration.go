package discovery

import (
	"context"
	"log/slog"
	"time"
)

// Registration tracks a live self-registration and its TTL heartbeat.
type Registration struct {
	registry    Registry
	instanceID  string
	serviceName string
	stopChan    chan struct{}
	logger      *slog.Logger
}

// Register registers the process with registry and starts a 1s TTL
// health-check heartbeat (spec's Consul TTL check shape).
func Register(ctx context.Context, registry Registry, instanceID, serviceName, addr string, logger *slog.Logger) (*Registration, error) {
	if err := registry.Register(ctx, instanceID, serviceName, addr); err != nil {
		return nil, err
	}

	r := &Registration{
		registry:    registry,
		instanceID:  instanceID,
		serviceName: serviceName,
		stopChan:    make(chan struct{}),
		logger:      logger,
	}

	go r.heartbeat()

	return r, nil
}

func (r *Registration) heartbeat() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.registry.HealthCheck(r.instanceID, r.serviceName); err != nil {
				r.logger.Warn("registry health check failed", slog.Any("error", err))
			}
		}
	}
}

// Deregister stops the heartbeat and removes the registration.
func (r *Registration) Deregister(ctx context.Context) error {
	close(r.stopChan)
	return r.registry.Deregister(ctx, r.instanceID, r.serviceName)
}

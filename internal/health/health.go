// Package health aggregates the broker, circuit breakers, correlation
// backlog, and tracer into the liveness/readiness views exposed over
// HTTP (spec §4.7).
package health

import (
	"context"
	"time"

	"github.com/samfms/core-gateway/internal/breaker"
	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/correlation"
	"github.com/samfms/core-gateway/internal/tracing"
)

// Status is the coarse health classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Report is the detailed health view (spec §4.7's /health/detailed).
type Report struct {
	Status        Status                   `json:"status"`
	BrokerHealthy bool                     `json:"broker_healthy"`
	Breakers      map[string]breaker.State `json:"circuit_breakers"`
	PendingCalls  int                      `json:"pending_calls"`
	ActiveTraces  int                      `json:"active_traces"`
	CheckedAt     time.Time                `json:"checked_at"`
}

// Aggregator composes the subsystems that make up overall health.
type Aggregator struct {
	client      *broker.Client
	breakers    *breaker.Registry
	correlation *correlation.Manager
	tracer      *tracing.Tracer
}

// New builds an Aggregator.
func New(client *broker.Client, breakers *breaker.Registry, corrMgr *correlation.Manager, tracer *tracing.Tracer) *Aggregator {
	return &Aggregator{client: client, breakers: breakers, correlation: corrMgr, tracer: tracer}
}

// Live reports process liveness: the process is up and able to answer,
// independent of any dependency's health.
func (a *Aggregator) Live() bool { return true }

// Ready reports whether the process can usefully serve traffic: the
// broker must be reachable.
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.client.HealthCheck(ctx) == nil
}

// Detailed composes the full health report.
func (a *Aggregator) Detailed(ctx context.Context) Report {
	brokerHealthy := a.client.HealthCheck(ctx) == nil
	breakerStates := a.breakers.Snapshot()

	status := StatusHealthy
	if !brokerHealthy {
		status = StatusDown
	} else {
		for _, state := range breakerStates {
			if state != breaker.Closed {
				status = StatusDegraded
				break
			}
		}
	}

	return Report{
		Status:        status,
		BrokerHealthy: brokerHealthy,
		Breakers:      breakerStates,
		PendingCalls:  a.correlation.Pending(),
		ActiveTraces:  a.tracer.ActiveCount(),
		CheckedAt:     time.Now(),
	}
}

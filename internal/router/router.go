// Package router implements the Core's Service Request Router: resolve
// an HTTP path to a destination service, mint a correlation ID, gate
// the call through that service's circuit breaker, publish the
// request, and await the reply (spec §4.2).
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/samfms/core-gateway/internal/breaker"
	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/config"
	"github.com/samfms/core-gateway/internal/correlation"
	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/errs"
	"github.com/samfms/core-gateway/internal/metrics"
	"github.com/samfms/core-gateway/internal/tracing"
)

// Router resolves paths to services and dispatches requests over the
// broker, enforcing the destination's circuit breaker and recording
// round-trip traces.
type Router struct {
	rules       []config.RouteRule
	client      *broker.Client
	correlation *correlation.Manager
	breakers    *breaker.Registry
	retryConfig breaker.RetryConfig
	tracer      *tracing.Tracer
	metrics     *metrics.DispatchMetrics
	logger      *slog.Logger
}

// New builds a Router.
func New(
	rules []config.RouteRule,
	client *broker.Client,
	corrMgr *correlation.Manager,
	breakers *breaker.Registry,
	retryConfig breaker.RetryConfig,
	tracer *tracing.Tracer,
	m *metrics.DispatchMetrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		rules:       rules,
		client:      client,
		correlation: corrMgr,
		breakers:    breakers,
		retryConfig: retryConfig,
		tracer:      tracer,
		metrics:     m,
		logger:      logger,
	}
}

// Resolve returns the destination service for path: the first rule, in
// declared table order, whose prefix matches (spec §4.2's router table).
func (r *Router) Resolve(path string) (string, error) {
	rule, err := r.RuleFor(path)
	if err != nil {
		return "", err
	}
	return rule.Service, nil
}

// RuleFor returns the full route rule matching path, by the same
// first-match-in-declared-order rule Resolve uses, so callers can reach
// fields beyond the destination service (e.g. the permission resource
// route guards check before dispatch).
func (r *Router) RuleFor(path string) (config.RouteRule, error) {
	path = "/" + strings.Trim(path, "/")

	for _, rule := range r.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule, nil
		}
	}
	return config.RouteRule{}, errs.New(errs.UnknownEndpoint, "no route matches "+path)
}

// Dispatch runs the router's full request cycle per spec §4.2:
// resolve, mint a correlation id, gate through the breaker, publish,
// await the reply (with retry on transient failures), and record the
// outcome against the breaker, metrics, and tracer.
func (r *Router) Dispatch(ctx context.Context, method, path string, data json.RawMessage, uc envelope.UserContext, timeout time.Duration) (*envelope.Response, error) {
	service, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}

	b := r.breakers.Get(service)
	if !b.Allow() {
		r.metrics.DispatchesTotal.WithLabelValues(service, "circuit_open").Inc()
		return nil, errs.New(errs.ServiceUnavailable, service+" is currently unavailable (circuit open)")
	}

	req := envelope.NewRequest(method, path, data, uc, "core")
	r.tracer.Start(req.CorrelationID)

	started := time.Now()
	var resp *envelope.Response
	dispatchErr := breaker.Do(ctx, r.retryConfig, func(ctx context.Context) error {
		attemptResp, attemptErr := r.attempt(ctx, service, req, timeout)
		if attemptErr != nil {
			return attemptErr
		}
		resp = attemptResp
		return nil
	})
	duration := time.Since(started)

	r.metrics.DispatchDuration.WithLabelValues(service).Observe(duration.Seconds())
	r.tracer.RecordCall(req.CorrelationID, tracing.Call{
		Service:   service,
		Operation: method + " " + path,
		Duration:  duration,
		Status:    outcomeStatus(dispatchErr),
		Error:     errMessage(dispatchErr),
		Timestamp: started,
	})

	if dispatchErr != nil {
		b.RecordFailure()
		r.metrics.DispatchesTotal.WithLabelValues(service, "failure").Inc()
		r.tracer.Complete(req.CorrelationID, tracing.StatusFailed)
		return nil, dispatchErr
	}

	b.RecordSuccess()
	r.metrics.DispatchesTotal.WithLabelValues(service, "success").Inc()
	r.tracer.Complete(req.CorrelationID, tracing.StatusCompleted)
	return resp, nil
}

func (r *Router) attempt(ctx context.Context, service string, req *envelope.Request, timeout time.Duration) (*envelope.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	replyCh, err := r.correlation.Register(req.CorrelationID, timeout)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		r.correlation.Cancel(req.CorrelationID)
		return nil, errs.Wrap(errs.Internal, "encoding request", err)
	}

	headers := tracing.InjectAMQPHeaders(callCtx)
	routingKey := broker.RequestRoutingKey(service)
	if err := r.client.Publish(callCtx, broker.ExchangeRequests, routingKey, body, headers); err != nil {
		r.correlation.Cancel(req.CorrelationID)
		return nil, errs.Wrap(errs.BrokerUnavailable, "publishing request", err)
	}

	resp, err := correlation.Await(callCtx, r.correlation, req.CorrelationID, replyCh)
	if err != nil {
		return nil, err
	}

	if resp.Status == envelope.StatusError && resp.Error != nil {
		return nil, errs.New(errs.Kind(resp.Error.Type), resp.Error.Message)
	}
	return &resp, nil
}

func outcomeStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "completed"
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

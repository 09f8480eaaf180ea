package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samfms/core-gateway/internal/auth"
	"github.com/samfms/core-gateway/internal/breaker"
	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/config"
	"github.com/samfms/core-gateway/internal/correlation"
	"github.com/samfms/core-gateway/internal/discovery"
	"github.com/samfms/core-gateway/internal/discovery/consul"
	"github.com/samfms/core-gateway/internal/discovery/inmem"
	"github.com/samfms/core-gateway/internal/health"
	"github.com/samfms/core-gateway/internal/metrics"
	"github.com/samfms/core-gateway/internal/router"
	"github.com/samfms/core-gateway/internal/tracing"
)

// app holds every long-lived collaborator the core process wires
// together, with an explicit Start/Shutdown lifecycle.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	brokerClient *broker.Client
	correlation  *correlation.Manager
	breakers     *breaker.Registry
	tracer       *tracing.Tracer
	router       *router.Router
	verifier     *auth.Verifier
	healthAgg    *health.Aggregator

	dispatchMetrics *metrics.DispatchMetrics
	httpMetrics     *metrics.HTTPMetrics

	registration    *discovery.Registration
	otelShutdown    func(context.Context) error
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func newApp(log *slog.Logger) (*app, error) {
	cfg, err := config.Load("core", "core-1", ":8080")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	otelShutdown, err := tracing.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Warn("tracing disabled, continuing without it", slog.Any("error", err))
		otelShutdown = func(context.Context) error { return nil }
	}

	brokerClient := broker.New(broker.Config{
		URL:               cfg.BrokerURL,
		HeartbeatInterval: cfg.BrokerHeartbeat,
		Prefetch:          cfg.BrokerPrefetch,
	}, log)

	corrMgr := correlation.NewManager(cfg.CorrelationMaxPending)
	breakers := breaker.NewRegistry(cfg.CircuitFailureThresh, cfg.CircuitOpenTimeout, cfg.CircuitHalfOpenMax)
	tracer := tracing.NewTracer(cfg.TraceRingCapacity, cfg.TraceRetention)
	dispatchMetrics := metrics.NewDispatchMetrics(cfg.ServiceName)
	httpMetrics := metrics.NewHTTPMetrics(cfg.ServiceName)

	retryConfig := breaker.RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      cfg.RetryJitter,
	}

	r := router.New(cfg.RouterTable, brokerClient, corrMgr, breakers, retryConfig, tracer, dispatchMetrics, log)
	verifier := auth.NewVerifier(cfg.AuthSecret, cfg.AuthAlgorithm)
	healthAgg := health.New(brokerClient, breakers, corrMgr, tracer)

	a := &app{
		cfg:             cfg,
		logger:          log,
		brokerClient:    brokerClient,
		correlation:     corrMgr,
		breakers:        breakers,
		tracer:          tracer,
		router:          r,
		verifier:        verifier,
		healthAgg:       healthAgg,
		dispatchMetrics: dispatchMetrics,
		httpMetrics:     httpMetrics,
		otelShutdown:    otelShutdown,
		shutdownTimeout: 15 * time.Second,
	}

	return a, nil
}

// Start connects to the broker, registers with service discovery, and
// begins serving HTTP.
func (a *app) Start(ctx context.Context) error {
	if err := a.brokerClient.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}

	registry, err := buildRegistry(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("building discovery registry: %w", err)
	}
	instanceID := a.cfg.InstanceID
	if instanceID == "" {
		instanceID = discovery.GenerateInstanceID(a.cfg.ServiceName)
	}
	registration, err := discovery.Register(ctx, registry, instanceID, a.cfg.ServiceName, a.cfg.HTTPAddr, a.logger)
	if err != nil {
		a.logger.Warn("service discovery registration failed, continuing unregistered", slog.Any("error", err))
	} else {
		a.registration = registration
	}

	if err := a.brokerClient.Consume(ctx, broker.CoreResponseQueue, a.handleResponse); err != nil {
		return fmt.Errorf("starting response consumer: %w", err)
	}

	a.httpServer = &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: a.routes(),
	}

	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.cfg.HTTPAddr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	return nil
}

// Shutdown drains the HTTP server and tears down every collaborator in
// reverse dependency order.
func (a *app) Shutdown(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Warn("http server shutdown error", slog.Any("error", err))
		}
	}
	if a.registration != nil {
		if err := a.registration.Deregister(ctx); err != nil {
			a.logger.Warn("deregistration error", slog.Any("error", err))
		}
	}
	a.correlation.Close()
	if err := a.brokerClient.Close(); err != nil {
		a.logger.Warn("broker close error", slog.Any("error", err))
	}
	return a.otelShutdown(ctx)
}

func buildRegistry(cfg config.Config, log *slog.Logger) (discovery.Registry, error) {
	if cfg.ConsulAddr == "" {
		log.Info("CONSUL_ADDR not set, using in-memory discovery registry")
		return inmem.NewRegistry(), nil
	}
	return consul.NewRegistry(cfg.ConsulAddr)
}

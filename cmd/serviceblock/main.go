// Command serviceblock runs a single service block's consumer process.
// Which service it behaves as is chosen by the SERVICE_NAME environment
// variable; this binary provides only the stub handlers needed to
// exercise the consumer library end to end; real business logic for
// each block is out of scope.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/config"
	"github.com/samfms/core-gateway/internal/consumer"
	"github.com/samfms/core-gateway/internal/dedup"
	"github.com/samfms/core-gateway/internal/discovery"
	"github.com/samfms/core-gateway/internal/discovery/consul"
	"github.com/samfms/core-gateway/internal/discovery/inmem"
	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/logger"
	"github.com/samfms/core-gateway/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "management"
	}

	log := logger.New(serviceName)

	cfg, err := config.Load(serviceName, serviceName+"-1", ":8081")
	if err != nil {
		log.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := broker.New(broker.Config{
		URL:               cfg.BrokerURL,
		HeartbeatInterval: cfg.BrokerHeartbeat,
		Prefetch:          cfg.BrokerPrefetch,
	}, log)

	if err := client.Connect(ctx); err != nil {
		log.Error("failed to connect to broker", slog.Any("error", err))
		os.Exit(1)
	}

	var window dedup.Window
	if cfg.DedupRedisAddr != "" {
		window = dedup.NewRedisWindow(cfg.DedupRedisAddr, serviceName+":dedup:", 10*time.Minute)
	} else {
		window = dedup.NewMemWindow(cfg.DedupCapacity, cfg.DedupTrimTo)
	}

	registry := consumer.NewRegistry()
	registerStubHandlers(serviceName, registry)

	consumerMetrics := metrics.NewConsumerMetrics(serviceName)
	c := consumer.New(serviceName, client, registry, window, consumerMetrics, log)

	if err := c.Start(ctx); err != nil {
		log.Error("failed to start consumer", slog.Any("error", err))
		os.Exit(1)
	}

	reg, err := buildRegistry(cfg, log)
	var registration *discovery.Registration
	if err != nil {
		log.Warn("discovery registry unavailable, continuing unregistered", slog.Any("error", err))
	} else {
		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = discovery.GenerateInstanceID(serviceName)
		}
		registration, err = discovery.Register(ctx, reg, instanceID, serviceName, cfg.HTTPAddr, log)
		if err != nil {
			log.Warn("service registration failed, continuing unregistered", slog.Any("error", err))
		}
	}

	log.Info("service block consumer running", slog.String("service", serviceName))
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if registration != nil {
		_ = registration.Deregister(shutdownCtx)
	}
	_ = client.Close()
}

func buildRegistry(cfg config.Config, log *slog.Logger) (discovery.Registry, error) {
	if cfg.ConsulAddr == "" {
		return inmem.NewRegistry(), nil
	}
	return consul.NewRegistry(cfg.ConsulAddr)
}

// registerStubHandlers wires a minimal handler per service block so the
// consumer library's decode/dedup/dispatch/reply cycle can be exercised
// without any of the six blocks' real business logic.
func registerStubHandlers(serviceName string, registry *consumer.Registry) {
	stub := func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]string{"service": serviceName, "status": "not_implemented"})
	}

	switch serviceName {
	case "management":
		registry.Handle("GET", "api/vehicles", stub)
		registry.Handle("GET", "api/drivers", stub)
		registry.Handle("GET", "api/assignments", stub)
		registry.Handle("GET", "api/analytics", stub)
	case "vehicle_maintenance":
		registry.Handle("GET", "api/maintenance", stub)
		registry.Handle("GET", "api/licenses", stub)
	case "gps":
		registry.Handle("GET", "api/gps", stub)
	case "trip_planning":
		registry.Handle("GET", "api/trips", stub)
	case "security":
		registry.Handle("POST", "api/auth", stub)
	case "utilities":
		registry.Handle("GET", "api/utilities", stub)
	}
}

// Command core runs the fleet-management gateway: the HTTP ingress,
// the Service Request Router, and the correlation/circuit-breaker
// plane that mediates every call to a service block over the broker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/samfms/core-gateway/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("core")

	app, err := newApp(log)
	if err != nil {
		log.Error("failed to initialise core", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Error("failed to start core", slog.Any("error", err))
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", slog.Any("error", err))
		os.Exit(1)
	}
}

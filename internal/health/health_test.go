package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samfms/core-gateway/internal/breaker"
	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/correlation"
	"github.com/samfms/core-gateway/internal/logger"
	"github.com/samfms/core-gateway/internal/tracing"
)

func TestDetailedReportsDownWhenBrokerUnconnected(t *testing.T) {
	client := broker.New(broker.Config{URL: "amqp://unused"}, logger.New("test"))
	breakers := breaker.NewRegistry(5, time.Minute, 1)
	corrMgr := correlation.NewManager(0)
	defer corrMgr.Close()
	tracer := tracing.NewTracer(10, time.Minute)

	agg := New(client, breakers, corrMgr, tracer)

	report := agg.Detailed(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.False(t, report.BrokerHealthy)
	assert.False(t, agg.Ready(context.Background()))
	assert.True(t, agg.Live())
}

func TestDetailedReportsOpenBreakerWhileBrokerDown(t *testing.T) {
	// A breaker that has already tripped open is reflected in the
	// detailed report even when unrelated to broker reachability.
	breakers := breaker.NewRegistry(1, time.Minute, 1)
	b := breakers.Get("management")
	b.RecordFailure()

	corrMgr := correlation.NewManager(0)
	defer corrMgr.Close()
	tracer := tracing.NewTracer(10, time.Minute)
	client := broker.New(broker.Config{URL: "amqp://unused"}, logger.New("test"))

	agg := New(client, breakers, corrMgr, tracer)
	report := agg.Detailed(context.Background())

	// Broker is also unreachable here, so overall status is "down" - the
	// broker check dominates the breaker's "degraded" signal.
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, breaker.Open, report.Breakers["management"])
}

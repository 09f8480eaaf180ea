package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/errs"
	"github.com/samfms/core-gateway/internal/logger"
	"github.com/samfms/core-gateway/internal/metrics"
)

func newTestConsumer(t *testing.T) (*Consumer, *Registry) {
	t.Helper()
	registry := NewRegistry()
	c := New("management", nil, registry, nil, metrics.NewConsumerMetrics("test_"+t.Name()), logger.New("test"))
	return c, registry
}

func TestDispatchSuccess(t *testing.T) {
	c, registry := newTestConsumer(t)
	registry.Handle("GET", "api/vehicles", func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"id":"v1"}`), nil
	})

	req := envelope.NewRequest("GET", "/api/vehicles/v1", nil, envelope.UserContext{}, "core")
	resp := c.dispatch(context.Background(), req)

	require.Equal(t, envelope.StatusSuccess, resp.Status)
	assert.JSONEq(t, `{"id":"v1"}`, string(resp.Data))
}

func TestDispatchUnknownEndpoint(t *testing.T) {
	c, _ := newTestConsumer(t)

	req := envelope.NewRequest("GET", "nonexistent", nil, envelope.UserContext{}, "core")
	resp := c.dispatch(context.Background(), req)

	require.Equal(t, envelope.StatusError, resp.Status)
	assert.Equal(t, string(errs.UnknownEndpoint), resp.Error.Type)
}

func TestDispatchHandlerErrorIsClassified(t *testing.T) {
	c, registry := newTestConsumer(t)
	registry.Handle("GET", "api/vehicles", func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error) {
		return nil, errs.New(errs.NotFound, "vehicle not found")
	})

	req := envelope.NewRequest("GET", "/api/vehicles/missing", nil, envelope.UserContext{}, "core")
	resp := c.dispatch(context.Background(), req)

	require.Equal(t, envelope.StatusError, resp.Status)
	assert.Equal(t, string(errs.NotFound), resp.Error.Type)
	assert.Equal(t, "vehicle not found", resp.Error.Message)
}

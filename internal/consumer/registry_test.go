package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samfms/core-gateway/internal/envelope"
)

func TestRegistryResolvesByBaseEndpoint(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Handle("GET", "api/vehicles", func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error) {
		called = true
		return json.RawMessage(`{}`), nil
	})

	handler, ok := r.Resolve("GET", "api/vehicles/123/history")
	assert.True(t, ok)

	_, err := handler(context.Background(), envelope.UserContext{}, nil)
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestRegistryResolveMissReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve("GET", "unregistered")
	assert.False(t, ok)
}

func TestRegistryDistinguishesMethod(t *testing.T) {
	r := NewRegistry()
	r.Handle("GET", "trips", func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	_, ok := r.Resolve("POST", "trips")
	assert.False(t, ok)
}

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samfms/core-gateway/internal/config"
	"github.com/samfms/core-gateway/internal/errs"
)

func TestResolveMatchesFirstPrefixInDeclaredOrder(t *testing.T) {
	rules := []config.RouteRule{
		{Prefix: "/api/vehicles", Service: "management"},
		{Prefix: "/api/vehicles/maintenance", Service: "vehicle_maintenance"},
	}
	r := &Router{rules: rules}

	// The earlier row wins even though a later row has a longer prefix.
	service, err := r.Resolve("/api/vehicles/maintenance/123")
	require.NoError(t, err)
	assert.Equal(t, "management", service)

	service, err = r.Resolve("/api/vehicles/123")
	require.NoError(t, err)
	assert.Equal(t, "management", service)
}

func TestResolveUnknownPathIsUnknownEndpoint(t *testing.T) {
	r := &Router{rules: config.DefaultRouterTable}

	_, err := r.Resolve("/api/nonexistent")
	require.Error(t, err)
	assert.Equal(t, errs.UnknownEndpoint, errs.As(err))
}

func TestRuleForReturnsMatchedResource(t *testing.T) {
	r := &Router{rules: config.DefaultRouterTable}

	rule, err := r.RuleFor("/api/vehicles/123")
	require.NoError(t, err)
	assert.Equal(t, "management", rule.Service)
	assert.Equal(t, "vehicles", rule.Resource)

	rule, err = r.RuleFor("/api/auth/token")
	require.NoError(t, err)
	assert.Equal(t, "security", rule.Service)
	assert.Empty(t, rule.Resource)
}

func TestRuleForUnknownPathIsUnknownEndpoint(t *testing.T) {
	r := &Router{rules: config.DefaultRouterTable}

	_, err := r.RuleFor("/api/nonexistent")
	require.Error(t, err)
	assert.Equal(t, errs.UnknownEndpoint, errs.As(err))
}

func TestResolveDefaultTable(t *testing.T) {
	r := &Router{rules: config.DefaultRouterTable}

	cases := map[string]string{
		"/api/vehicles":    "management",
		"/api/maintenance": "vehicle_maintenance",
		"/api/gps":         "gps",
		"/api/trips":       "trip_planning",
		"/api/auth":        "security",
		"/api/utilities":   "utilities",
	}
	for path, want := range cases {
		service, err := r.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, want, service, "path %s", path)
	}
}

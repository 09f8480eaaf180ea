package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samfms/core-gateway/internal/config"
)

func TestRequiredPermissionReadVsWrite(t *testing.T) {
	rule := config.RouteRule{Prefix: "/api/vehicles", Service: "management", Resource: "vehicles"}

	assert.Equal(t, "vehicles:read", requiredPermission(rule, http.MethodGet))
	assert.Equal(t, "vehicles:write", requiredPermission(rule, http.MethodPost))
	assert.Equal(t, "vehicles:write", requiredPermission(rule, http.MethodDelete))
}

func TestRequiredPermissionEmptyResourceSkipsGuard(t *testing.T) {
	rule := config.RouteRule{Prefix: "/api/auth", Service: "security"}

	assert.Empty(t, requiredPermission(rule, http.MethodPost))
}

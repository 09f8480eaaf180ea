package consumer

import (
	"context"
	"encoding/json"

	"github.com/samfms/core-gateway/internal/envelope"
)

// HandlerFunc processes one request's Data payload and returns the
// response payload, or an error that Consumer classifies via errs.Kind
// into an envelope.ErrorInfo.
type HandlerFunc func(ctx context.Context, uc envelope.UserContext, data json.RawMessage) (json.RawMessage, error)

// Registry resolves (baseEndpoint, method) to a HandlerFunc, mirroring
// the route table a service block owns internally (spec §4.4).
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry builds an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]HandlerFunc{}}
}

// Handle registers fn for method on baseEndpoint, e.g. ("GET",
// "api/vehicles", fn).
func (r *Registry) Handle(method, baseEndpoint string, fn HandlerFunc) {
	r.handlers[key(method, baseEndpoint)] = fn
}

// Resolve returns the handler for method/endpoint, using only the
// first two path segments of endpoint (spec §4.4's BaseEndpoint rule).
func (r *Registry) Resolve(method, endpoint string) (HandlerFunc, bool) {
	fn, ok := r.handlers[key(method, envelope.BaseEndpoint(endpoint))]
	return fn, ok
}

func key(method, baseEndpoint string) string {
	return method + " " + baseEndpoint
}

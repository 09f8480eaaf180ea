// Package envelope defines the request/response records exchanged
// between the Core and a service block over the broker. Parsing happens
// once, at this boundary; everything downstream sees validated values.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserContext travels inside every envelope so a service block never
// needs to re-validate a token. "system" is the sentinel Role/UserID
// used for internally-originated calls.
type UserContext struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	TraceID     string   `json:"trace_id"`
	ClientIP    string   `json:"client_ip"`
}

// SystemUserContext is the sentinel context for Core-originated calls
// that do not correspond to an authenticated HTTP caller.
func SystemUserContext(traceID string) UserContext {
	return UserContext{UserID: "system", Role: "system", TraceID: traceID}
}

// HasPermission reports whether p (in the form "service:action") is
// granted, honouring a "*" wildcard segment on either side.
func (u UserContext) HasPermission(p string) bool {
	for _, granted := range u.Permissions {
		if granted == "*" || granted == p {
			return true
		}
		if matchWildcard(granted, p) {
			return true
		}
	}
	return false
}

func matchWildcard(granted, want string) bool {
	gService, gAction, ok1 := splitPermission(granted)
	wService, wAction, ok2 := splitPermission(want)
	if !ok1 || !ok2 {
		return false
	}
	serviceMatch := gService == "*" || gService == wService
	actionMatch := gAction == "*" || gAction == wAction
	return serviceMatch && actionMatch
}

func splitPermission(p string) (service, action string, ok bool) {
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			return p[:i], p[i+1:], true
		}
	}
	return "", "", false
}

// Request is the Core → Service envelope (spec §3).
type Request struct {
	CorrelationID string          `json:"correlation_id"`
	Method        string          `json:"method"`
	Endpoint      string          `json:"endpoint"`
	Data          json.RawMessage `json:"data,omitempty"`
	UserContext   UserContext     `json:"user_context"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service,omitempty"`
}

// NewRequest mints a correlation id and stamps the timestamp.
func NewRequest(method, endpoint string, data json.RawMessage, uc UserContext, source string) *Request {
	return &Request{
		CorrelationID: uuid.NewString(),
		Method:        method,
		Endpoint:      NormaliseEndpoint(endpoint),
		Data:          data,
		UserContext:   uc,
		Timestamp:     time.Now().UTC(),
		SourceService: source,
	}
}

// Validate enforces the non-empty-field invariants from spec §3.
func (r *Request) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("correlation_id is required")
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	return nil
}

// NormaliseEndpoint trims leading/trailing slashes, per spec §3.
func NormaliseEndpoint(path string) string {
	start, end := 0, len(path)
	for start < end && path[start] == '/' {
		start++
	}
	for end > start && path[end-1] == '/' {
		end--
	}
	return path[start:end]
}

// Status is the outcome discriminator of a Response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorInfo is the {type, message} pair carried by a failed Response.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Response is the Service → Core envelope (spec §3). Exactly one of
// Data or Error is populated, per the invariant in spec §3.
type Response struct {
	CorrelationID string          `json:"correlation_id"`
	Status        Status          `json:"status"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         *ErrorInfo      `json:"error,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Success builds a success envelope.
func Success(correlationID string, data json.RawMessage) *Response {
	return &Response{
		CorrelationID: correlationID,
		Status:        StatusSuccess,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}
}

// Failure builds an error envelope.
func Failure(correlationID, errType, message string) *Response {
	return &Response{
		CorrelationID: correlationID,
		Status:        StatusError,
		Error:         &ErrorInfo{Type: errType, Message: message},
		Timestamp:     time.Now().UTC(),
	}
}

// Validate enforces the "exactly one of data/error" invariant.
func (r *Response) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("correlation_id is required")
	}
	switch r.Status {
	case StatusSuccess:
		if r.Error != nil {
			return fmt.Errorf("success response must not carry an error")
		}
	case StatusError:
		if r.Error == nil {
			return fmt.Errorf("error response must carry an error")
		}
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}

// BaseEndpoint returns the first two path segments of endpoint, used by
// the consumer side to resolve a handler (spec §4.4).
func BaseEndpoint(endpoint string) string {
	endpoint = NormaliseEndpoint(endpoint)
	segments := 0
	for i := 0; i < len(endpoint); i++ {
		if endpoint[i] == '/' {
			segments++
			if segments == 2 {
				return endpoint[:i]
			}
		}
	}
	return endpoint
}

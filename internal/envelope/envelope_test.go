package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestNormalisesEndpointAndMintsID(t *testing.T) {
	req := NewRequest("GET", "/vehicles/123/", json.RawMessage(`{}`), SystemUserContext("trace-1"), "core")

	assert.Equal(t, "vehicles/123", req.Endpoint)
	assert.NotEmpty(t, req.CorrelationID)
	assert.NoError(t, req.Validate())
}

func TestRequestValidateRequiresFields(t *testing.T) {
	req := &Request{}
	assert.Error(t, req.Validate())
}

func TestResponseValidateExactlyOneOf(t *testing.T) {
	success := Success("corr-1", json.RawMessage(`{"ok":true}`))
	require.NoError(t, success.Validate())

	failure := Failure("corr-1", "ValidationError", "bad input")
	require.NoError(t, failure.Validate())

	broken := &Response{CorrelationID: "corr-1", Status: StatusSuccess, Error: &ErrorInfo{Type: "X"}}
	assert.Error(t, broken.Validate())

	brokenErr := &Response{CorrelationID: "corr-1", Status: StatusError}
	assert.Error(t, brokenErr.Validate())
}

func TestBaseEndpoint(t *testing.T) {
	cases := map[string]string{
		"vehicles":                           "vehicles",
		"vehicles/123":                       "vehicles/123",
		"vehicles/123/maintenance":           "vehicles/123",
		"/vehicles/123/maintenance/history/": "vehicles/123",
	}
	for in, want := range cases {
		assert.Equal(t, want, BaseEndpoint(in), "input %q", in)
	}
}

func TestHasPermissionWildcards(t *testing.T) {
	uc := UserContext{Permissions: []string{"management:read", "gps:*", "*"}}
	assert.True(t, uc.HasPermission("management:read"))
	assert.True(t, uc.HasPermission("gps:write"))

	wildcardOnly := UserContext{Permissions: []string{"*"}}
	assert.True(t, wildcardOnly.HasPermission("anything:here"))

	none := UserContext{}
	assert.False(t, none.HasPermission("management:read"))
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samfms/core-gateway/internal/envelope"
)

func TestVerifyValidToken(t *testing.T) {
	token, err := IssueForTest("shh", "HS256", "user-1", "fleet_manager", []string{"management:read"}, time.Minute)
	require.NoError(t, err)

	v := NewVerifier("shh", "HS256")
	uc, denied := v.Verify("Bearer "+token, "trace-1", "10.0.0.5")

	assert.Equal(t, DenyNone, denied)
	assert.Equal(t, "user-1", uc.UserID)
	assert.Equal(t, "fleet_manager", uc.Role)
	assert.Equal(t, "trace-1", uc.TraceID)
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	v := NewVerifier("shh", "HS256")
	_, denied := v.Verify("", "trace-1", "10.0.0.5")
	assert.Equal(t, DenyUnauthorised, denied)
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	v := NewVerifier("shh", "HS256")
	_, denied := v.Verify("Token abc", "trace-1", "10.0.0.5")
	assert.Equal(t, DenyUnauthorised, denied)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	token, err := IssueForTest("other-secret", "HS256", "user-1", "fleet_manager", nil, time.Minute)
	require.NoError(t, err)

	v := NewVerifier("shh", "HS256")
	_, denied := v.Verify("Bearer "+token, "trace-1", "10.0.0.5")
	assert.Equal(t, DenyUnauthorised, denied)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := IssueForTest("shh", "HS256", "user-1", "fleet_manager", nil, -time.Minute)
	require.NoError(t, err)

	v := NewVerifier("shh", "HS256")
	_, denied := v.Verify("Bearer "+token, "trace-1", "10.0.0.5")
	assert.Equal(t, DenyUnauthorised, denied)
}

func TestRequirePermission(t *testing.T) {
	uc := envelope.UserContext{Permissions: []string{"management:read"}}

	allowed := RequirePermission(uc, "management:read")
	assert.True(t, allowed.Allowed)

	denied := RequirePermission(uc, "management:write")
	assert.False(t, denied.Allowed)
	assert.Equal(t, DenyForbidden, denied.Denied)
}

// Package auth verifies bearer tokens issued by the security service
// block and gates routes by "service:action" permission; there is no
// role allow-list check. Token issuance itself is
// out of scope here; it is proxied through the router to security
// (spec's Non-goals).
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samfms/core-gateway/internal/envelope"
)

// Claims is the JWT payload security issues for an authenticated user.
type Claims struct {
	UserID      string   `json:"sub"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Result is the outcome of verifying a request's bearer token, a sum
// type so callers never branch on a generic error (spec §9's redesign
// flag against exceptions-for-control-flow).
type Result struct {
	Allowed bool
	Denied  DenyReason
	User    envelope.UserContext
}

// DenyReason classifies why a Result was not Allowed.
type DenyReason string

const (
	DenyNone         DenyReason = ""
	DenyUnauthorised DenyReason = "unauthorised"
	DenyForbidden    DenyReason = "forbidden"
)

// Verifier checks bearer tokens against a shared secret.
type Verifier struct {
	secret    []byte
	algorithm string
}

// NewVerifier builds a Verifier using secret to validate signatures
// produced with algorithm (e.g. "HS256").
func NewVerifier(secret, algorithm string) *Verifier {
	return &Verifier{secret: []byte(secret), algorithm: algorithm}
}

var errUnexpectedSigningMethod = errors.New("auth: unexpected signing method")

// Verify parses and validates a raw "Bearer <token>" header value,
// returning the caller's UserContext on success.
func (v *Verifier) Verify(authHeader, traceID, clientIP string) (envelope.UserContext, DenyReason) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return envelope.UserContext{}, DenyUnauthorised
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return envelope.UserContext{}, DenyUnauthorised
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != v.algorithm {
			return nil, errUnexpectedSigningMethod
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return envelope.UserContext{}, DenyUnauthorised
	}

	return envelope.UserContext{
		UserID:      claims.UserID,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		TraceID:     traceID,
		ClientIP:    clientIP,
	}, DenyNone
}

// RequirePermission gates a verified user against a required
// "service:action" permission.
func RequirePermission(uc envelope.UserContext, permission string) Result {
	if uc.HasPermission(permission) {
		return Result{Allowed: true, User: uc}
	}
	return Result{Allowed: false, Denied: DenyForbidden, User: uc}
}

// IssueForTest mints a token for use in tests, signed with the same
// secret/algorithm a Verifier expects. Not used by any production path.
func IssueForTest(secret, algorithm, userID, role string, permissions []string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:      userID,
		Role:        role,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	method := jwt.GetSigningMethod(algorithm)
	token := jwt.NewWithClaims(method, claims)
	return token.SignedString([]byte(secret))
}

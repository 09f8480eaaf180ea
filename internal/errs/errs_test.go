package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Unauthorised, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{ValidationError, http.StatusBadRequest},
		{UnknownEndpoint, http.StatusNotFound},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Timeout, http.StatusGatewayTimeout},
		{ServiceUnavailable, http.StatusServiceUnavailable},
		{BrokerUnavailable, http.StatusServiceUnavailable},
		{BackpressureRejected, http.StatusServiceUnavailable},
		{Internal, http.StatusInternalServerError},
		{Kind("Unmapped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.kind.HTTPStatus(), "kind %s", tc.kind)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, BrokerUnavailable.Retryable())
	assert.True(t, Timeout.Retryable())
	assert.False(t, ValidationError.Retryable())
	assert.False(t, Unauthorised.Retryable())
}

func TestWrapAndAs(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(BrokerUnavailable, "publishing request", cause)

	assert.Equal(t, BrokerUnavailable, As(err))
	assert.Equal(t, "publishing request", Message(err))
	assert.ErrorIs(t, err, cause)
}

func TestAsDefaultsToInternal(t *testing.T) {
	assert.Equal(t, Internal, As(errors.New("plain error")))
}

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestInjectExtractAMQPHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx := context.Background()
	headers := InjectAMQPHeaders(ctx)

	restored := ExtractAMQPHeaders(context.Background(), headers)
	assert.NotNil(t, restored)
}

func TestCarrierGetSetKeys(t *testing.T) {
	c := amqpHeaderCarrier{}
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Contains(t, c.Keys(), "traceparent")
	assert.Equal(t, "", c.Get("missing"))
}

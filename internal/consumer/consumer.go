// Package consumer is the service-block-side mirror of internal/router:
// it binds a service's request queue, decodes envelope.Request
// deliveries, deduplicates, dispatches to a registered handler, and
// publishes an envelope.Response (spec §4.4). Every envelope that carries
// a correlation id and is not a duplicate gets exactly one reply;
// undecodable deliveries, envelopes without a correlation id, and
// duplicates are acked without a reply.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/samfms/core-gateway/internal/broker"
	"github.com/samfms/core-gateway/internal/dedup"
	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/errs"
	"github.com/samfms/core-gateway/internal/metrics"
	"github.com/samfms/core-gateway/internal/tracing"
)

// Consumer runs the decode -> dedup -> dispatch -> reply -> ack loop
// for one service block.
type Consumer struct {
	serviceName string
	client      *broker.Client
	registry    *Registry
	window      dedup.Window
	metrics     *metrics.ConsumerMetrics
	logger      *slog.Logger
}

// New builds a Consumer for serviceName.
func New(serviceName string, client *broker.Client, registry *Registry, window dedup.Window, m *metrics.ConsumerMetrics, logger *slog.Logger) *Consumer {
	return &Consumer{
		serviceName: serviceName,
		client:      client,
		registry:    registry,
		window:      window,
		metrics:     m,
		logger:      logger.With(slog.String("service", serviceName)),
	}
}

// Start binds the service's request queue to the requests exchange and
// begins consuming deliveries.
func (c *Consumer) Start(ctx context.Context) error {
	queue := broker.RequestQueueName(c.serviceName)
	routingKey := broker.RequestRoutingKey(c.serviceName)

	if err := c.client.BindQueue(queue, broker.ExchangeRequests, routingKey); err != nil {
		return err
	}

	return c.client.Consume(ctx, queue, c.handleDelivery)
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	ctx = tracing.ExtractAMQPHeaders(ctx, d.Headers)

	var req envelope.Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		c.logger.Warn("dropping malformed delivery", slog.Any("error", err))
		c.metrics.DeliveriesTotal.WithLabelValues("malformed").Inc()
		return nil
	}

	if err := req.Validate(); err != nil {
		c.logger.Warn("rejecting invalid envelope", slog.Any("error", err), slog.String("correlation_id", req.CorrelationID))
		c.metrics.DeliveriesTotal.WithLabelValues("invalid").Inc()
		if req.CorrelationID == "" {
			return nil
		}
		return c.reply(ctx, envelope.Failure(req.CorrelationID, string(errs.ValidationError), err.Error()))
	}

	if c.window.Seen(req.CorrelationID) {
		c.metrics.DedupDrops.Inc()
		c.logger.Debug("dropping duplicate delivery", slog.String("correlation_id", req.CorrelationID))
		return nil
	}

	resp := c.dispatch(ctx, &req)
	return c.reply(ctx, resp)
}

func (c *Consumer) dispatch(ctx context.Context, req *envelope.Request) *envelope.Response {
	started := time.Now()
	baseEndpoint := envelope.BaseEndpoint(req.Endpoint)

	handler, ok := c.registry.Resolve(req.Method, req.Endpoint)
	if !ok {
		c.metrics.DeliveriesTotal.WithLabelValues("unknown_endpoint").Inc()
		return envelope.Failure(req.CorrelationID, string(errs.UnknownEndpoint), "no handler registered for "+req.Method+" "+req.Endpoint)
	}

	data, err := handler(ctx, req.UserContext, req.Data)
	c.metrics.HandlerDuration.WithLabelValues(baseEndpoint).Observe(time.Since(started).Seconds())

	if err != nil {
		kind := errs.As(err)
		c.metrics.DeliveriesTotal.WithLabelValues("error").Inc()
		return envelope.Failure(req.CorrelationID, string(kind), errs.Message(err))
	}

	c.metrics.DeliveriesTotal.WithLabelValues("success").Inc()
	return envelope.Success(req.CorrelationID, data)
}

func (c *Consumer) reply(ctx context.Context, resp *envelope.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	headers := tracing.InjectAMQPHeaders(ctx)
	return c.client.Publish(ctx, broker.ExchangeResponses, broker.CoreResponseKey, body, headers)
}

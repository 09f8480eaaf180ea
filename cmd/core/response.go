package main

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/samfms/core-gateway/internal/envelope"
)

// handleResponse is the Core's response-consumer: it decodes every
// delivery on broker.CoreResponseQueue and hands it to the correlation
// manager, which wakes up whichever Router.Dispatch call is awaiting
// that correlation id (spec §4.3). Malformed or unregistered replies
// are logged and dropped, never requeued.
func (a *app) handleResponse(ctx context.Context, d amqp.Delivery) error {
	var resp envelope.Response
	if err := json.Unmarshal(d.Body, &resp); err != nil {
		a.logger.Warn("dropping malformed response delivery", slog.Any("error", err))
		return nil
	}

	if err := resp.Validate(); err != nil {
		a.logger.Warn("dropping invalid response envelope", slog.Any("error", err), slog.String("correlation_id", resp.CorrelationID))
		return nil
	}

	if !a.correlation.Resolve(resp.CorrelationID, resp) {
		a.logger.Debug("dropping response with no pending correlation entry", slog.String("correlation_id", resp.CorrelationID))
	}

	return nil
}

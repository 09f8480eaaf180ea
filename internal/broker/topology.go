package broker

import amqp "github.com/rabbitmq/amqp091-go"

// Exchange and queue names from the declarative topology in spec §3/§6.
const (
	ExchangeRequests  = "service_requests"
	ExchangeResponses = "service_responses"
	ExchangeEvents    = "service_events"

	CoreResponseQueue = "core.responses"
	CoreResponseKey   = "core.responses"
)

// RequestQueueName returns the durable queue name owned by a service
// block, e.g. "management.requests".
func RequestQueueName(service string) string {
	return service + ".requests"
}

// RequestRoutingKey returns the routing key Core publishes requests for
// service under, matching RequestQueueName's binding.
func RequestRoutingKey(service string) string {
	return service + ".requests"
}

// declareTopology declares the three exchanges and the Core's own
// response queue. Service-block queues are declared by the consumer
// side (internal/consumer) against the same exchanges.
func declareTopology(ch *amqp.Channel) error {
	for _, exchange := range []string{ExchangeRequests, ExchangeResponses} {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return err
		}
	}
	if err := ch.ExchangeDeclare(ExchangeEvents, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(CoreResponseQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(CoreResponseQueue, CoreResponseKey, ExchangeResponses, false, nil); err != nil {
		return err
	}

	return nil
}

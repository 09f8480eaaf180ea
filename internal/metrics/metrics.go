// Package metrics holds the Prometheus collectors for the routing and
// correlation plane.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics records the ingress HTTP surface.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates HTTP metrics for a service.
func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    serviceName + "_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordHTTPRequest records an HTTP request metric.
func (m *HTTPMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// DispatchMetrics records outbound dispatches through the router.
type DispatchMetrics struct {
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec
	BreakerTrips     *prometheus.CounterVec
	RetryAttempts    *prometheus.CounterVec
	PendingCalls     prometheus.Gauge
	BackpressureDrop prometheus.Counter
}

// NewDispatchMetrics creates the router/breaker/correlation metrics.
func NewDispatchMetrics(serviceName string) *DispatchMetrics {
	return &DispatchMetrics{
		DispatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_dispatches_total",
				Help: "Total number of dispatches to service blocks",
			},
			[]string{"service", "outcome"},
		),
		DispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    serviceName + "_dispatch_duration_seconds",
				Help:    "Dispatch round-trip duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: serviceName + "_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed,1=half_open,2=open)",
			},
			[]string{"service"},
		),
		BreakerTrips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_circuit_breaker_trips_total",
				Help: "Total number of circuit breaker trips to open",
			},
			[]string{"service"},
		),
		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_retry_attempts_total",
				Help: "Total number of retry attempts by outcome",
			},
			[]string{"service", "outcome"},
		),
		PendingCalls: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: serviceName + "_correlation_pending_calls",
				Help: "Number of in-flight correlation entries",
			},
		),
		BackpressureDrop: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_correlation_backpressure_rejected_total",
				Help: "Total number of dispatches rejected due to correlation backpressure",
			},
		),
	}
}

// ConsumerMetrics records the service-block side of the mirror pattern.
type ConsumerMetrics struct {
	DeliveriesTotal *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	DedupDrops      prometheus.Counter
}

// NewConsumerMetrics creates service-consumer metrics.
func NewConsumerMetrics(serviceName string) *ConsumerMetrics {
	return &ConsumerMetrics{
		DeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_consumer_deliveries_total",
				Help: "Total number of broker deliveries processed",
			},
			[]string{"outcome"},
		),
		HandlerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    serviceName + "_consumer_handler_duration_seconds",
				Help:    "Handler execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		DedupDrops: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_consumer_dedup_drops_total",
				Help: "Total number of deliveries dropped as duplicates",
			},
		),
	}
}

// Package broker wraps a single AMQP connection with the topology,
// reconnect, and health-check behaviour the router and consumer
// packages build on.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Delivery is the subset of amqp.Delivery a handler needs to process one
// message and decide how to settle it.
type Delivery = amqp.Delivery

// Handler processes one delivery. Returning an error nacks-and-requeues
// the message; returning nil acks it. internal/consumer always returns
// nil after producing a reply, per spec §4.4's "always ack" rule.
type Handler func(ctx context.Context, d Delivery) error

// Client owns one *amqp.Connection and two channels partitioned by
// role: a publisher channel and a consumer channel, per spec §5.
// Reconnect is handled internally; callers never see a connection
// drop, only elevated latency or a BrokerUnavailable error once the
// local connect breaker opens.
type Client struct {
	url       string
	heartbeat time.Duration
	prefetch  int
	logger    *slog.Logger
	breaker   *connectBreaker

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubCh   *amqp.Channel
	consCh  *amqp.Channel
	closed  bool
	closeCh chan struct{}
}

// Config collects the dial parameters Client needs, decoupled from
// internal/config so this package stays importable standalone.
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	Prefetch          int
	ConnectFailThresh int
	ConnectCooldown   time.Duration
}

// New builds a Client. Connect must be called before Publish/Consume.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.ConnectFailThresh <= 0 {
		cfg.ConnectFailThresh = 5
	}
	if cfg.ConnectCooldown <= 0 {
		cfg.ConnectCooldown = 60 * time.Second
	}
	return &Client{
		url:       cfg.URL,
		heartbeat: cfg.HeartbeatInterval,
		prefetch:  cfg.Prefetch,
		logger:    logger,
		breaker:   newConnectBreaker(cfg.ConnectFailThresh, cfg.ConnectCooldown),
		closeCh:   make(chan struct{}),
	}
}

// ErrConnectBreakerOpen is returned by Connect when too many consecutive
// dial failures have tripped the local connect breaker.
var ErrConnectBreakerOpen = errors.New("broker: connect breaker open, too many consecutive dial failures")

// Connect dials the broker, declares the topology, and starts a
// background watcher that reconnects with exponential backoff
// (base 2s, max 60s, jitter 0.5-1.0x) whenever the connection drops.
// It blocks until the first successful connection or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	const base = 2 * time.Second
	const max = 60 * time.Second

	for attempt := 0; ; attempt++ {
		err := c.dial()
		if err == nil {
			break
		}
		c.logger.Warn("broker connect attempt failed", slog.Any("error", err), slog.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoffDelay(base, max, attempt)):
		}
	}
	go c.watch()
	return nil
}

func (c *Client) dial() error {
	if !c.breaker.Allow() {
		return ErrConnectBreakerOpen
	}

	conn, err := amqp.DialConfig(c.url, amqp.Config{Heartbeat: c.heartbeat})
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("dialing broker: %w", err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		c.breaker.RecordFailure()
		return fmt.Errorf("opening publisher channel: %w", err)
	}
	if err := declareTopology(pubCh); err != nil {
		pubCh.Close()
		conn.Close()
		c.breaker.RecordFailure()
		return fmt.Errorf("declaring topology: %w", err)
	}

	consCh, err := conn.Channel()
	if err != nil {
		pubCh.Close()
		conn.Close()
		c.breaker.RecordFailure()
		return fmt.Errorf("opening consumer channel: %w", err)
	}
	if err := consCh.Qos(c.prefetch, 0, false); err != nil {
		consCh.Close()
		pubCh.Close()
		conn.Close()
		c.breaker.RecordFailure()
		return fmt.Errorf("setting qos: %w", err)
	}

	c.mu.Lock()
	c.conn, c.pubCh, c.consCh = conn, pubCh, consCh
	c.mu.Unlock()

	c.breaker.RecordSuccess()
	c.logger.Info("broker connected", slog.String("url", redactURL(c.url)))
	return nil
}

// watch blocks on the connection's close notification and reconnects
// with backoff until Close is called.
func (c *Client) watch() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.closeCh:
			return
		case err := <-notifyClose:
			if err != nil {
				c.logger.Warn("broker connection lost, reconnecting", slog.Any("error", err))
			}
		}

		c.reconnectLoop()
	}
}

func (c *Client) reconnectLoop() {
	const base = 2 * time.Second
	const max = 60 * time.Second
	attempt := 0

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		if err := c.dial(); err == nil {
			return
		} else {
			c.logger.Warn("broker reconnect attempt failed", slog.Any("error", err), slog.Int("attempt", attempt))
		}

		delay := backoffDelay(base, max, attempt)
		attempt++

		select {
		case <-c.closeCh:
			return
		case <-time.After(delay):
		}
	}
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base * time.Duration(1<<uint(attempt))
	if d > max || d <= 0 {
		d = max
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(d) * jitter)
}

func redactURL(url string) string {
	at := -1
	for i, r := range url {
		if r == '@' {
			at = i
		}
	}
	if at == -1 {
		return url
	}
	scheme := ""
	for i, r := range url {
		if r == ':' {
			scheme = url[:i+3]
			break
		}
	}
	return scheme + "***@" + url[at+1:]
}

// channels returns the current publisher/consumer channels, or an
// error if the client has not connected yet.
func (c *Client) channels() (*amqp.Channel, *amqp.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pubCh == nil || c.consCh == nil {
		return nil, nil, errors.New("broker: not connected")
	}
	return c.pubCh, c.consCh, nil
}

// Publish sends body to exchange under routingKey, with headers merged
// into the message's AMQP headers table (used for trace propagation).
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	pubCh, _, err := c.channels()
	if err != nil {
		return err
	}

	return pubCh.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
}

// Consume declares queue (idempotently, durable) and dispatches every
// delivery to handler on its own goroutine. It returns once the
// consumer channel is established; delivery processing continues in
// the background until Close.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	_, consCh, err := c.channels()
	if err != nil {
		return err
	}

	if _, err := consCh.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	deliveries, err := consCh.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consumer on %s: %w", queue, err)
	}

	go func() {
		for d := range deliveries {
			d := d
			go func() {
				if err := handler(ctx, d); err != nil {
					c.logger.Warn("handler failed, requeueing", slog.Any("error", err))
					_ = d.Nack(false, true)
					return
				}
				_ = d.Ack(false)
			}()
		}
	}()

	return nil
}

// BindQueue binds queue to exchange under routingKey. Used by
// internal/consumer to bind a service block's request queue.
func (c *Client) BindQueue(queue, exchange, routingKey string) error {
	_, consCh, err := c.channels()
	if err != nil {
		return err
	}
	if _, err := consCh.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	return consCh.QueueBind(queue, routingKey, exchange, false, nil)
}

// HealthCheck verifies the broker is reachable by declaring and
// immediately deleting a temporary exclusive, auto-delete queue.
func (c *Client) HealthCheck(ctx context.Context) error {
	pubCh, _, err := c.channels()
	if err != nil {
		return err
	}

	q, err := pubCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("health check queue declare failed: %w", err)
	}
	_, err = pubCh.QueueDelete(q.Name, false, false, false)
	return err
}

// Close shuts down the connection and stops the reconnect watcher.
// Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	if c.consCh != nil {
		c.consCh.Close()
	}
	if c.pubCh != nil {
		c.pubCh.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Client owns one connection and one confirm-mode channel to the device
// updates exchange. A closed connection is re-established lazily on the next
// publish. At most one reconnect cycle runs at a time and it is bounded by the
// client's lifetime, not by the deadline of the publish that started it.
type Client struct {
	url         string
	exchange    string
	kind        string
	heartbeat   time.Duration
	maxAttempts int

	dial  Dialer
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	conn  Connection
	ch    Channel
	cycle *reconnectCycle

	// owned by the running reconnect cycle
	backoff Backoff

	ctx    context.Context
	cancel context.CancelFunc

	log *zap.Logger
}

// reconnectCycle is shared by every publish waiting on the same reconnect.
type reconnectCycle struct {
	done chan struct{}
	err  error
}

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithSleep replaces the wait between reconnect attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func NewClient(cfg config.RabbitMQConfig, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:         cfg.URI,
		exchange:    cfg.ExchangeName,
		kind:        cfg.ExchangeType,
		heartbeat:   cfg.Heartbeat,
		maxAttempts: cfg.MaxRetries,
		dial:        DialAMQP,
		sleep:       sleepContext,
		backoff: Backoff{
			Base: cfg.RetryDelay,
			Max:  cfg.MaxRetryDelay,
		},
		ctx:    ctx,
		cancel: cancel,
		log:    logger.Named("rabbitmq_client"),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 1
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish sends body to the exchange with the routing key and waits for the
// broker confirmation.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	ch, err := c.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishConfirmed(ctx, c.exchange, routingKey, amqp.Publishing{
		ContentType:  "text/plain",
		Body:         body,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		if ch.IsClosed() {
			c.mu.Lock()
			if c.ch == ch {
				c.closeLocked()
			}
			c.mu.Unlock()
		}
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}

	return nil
}

// Close stops any reconnect in progress and closes the connection.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// channel returns the open channel, or joins (starting if needed) the
// reconnect cycle and waits for it until ctx is done.
func (c *Client) channel(ctx context.Context) (Channel, error) {
	c.mu.Lock()
	if c.ch != nil && !c.ch.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		ch := c.ch
		c.mu.Unlock()
		return ch, nil
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	cycle := c.cycle
	if cycle == nil {
		c.closeLocked()
		cycle = &reconnectCycle{done: make(chan struct{})}
		c.cycle = cycle
		go c.reconnect(cycle)
	}
	c.mu.Unlock()

	select {
	case <-cycle.done:
		if cycle.err != nil {
			return nil, cycle.err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.ch == nil {
			return nil, ErrUnavailable
		}
		return c.ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// reconnect dials up to maxAttempts times with a fresh backoff.
func (c *Client) reconnect(cycle *reconnectCycle) {
	defer close(cycle.done)

	c.backoff.Reset()
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		conn, ch, err := c.connect()
		if err == nil {
			c.mu.Lock()
			c.cycle = nil
			if c.ctx.Err() != nil {
				c.mu.Unlock()
				_ = ch.Close()
				_ = conn.Close()
				cycle.err = ErrClosed
				return
			}
			c.conn, c.ch = conn, ch
			c.mu.Unlock()

			c.log.Info("Connected to RabbitMQ",
				zap.String("exchange", c.exchange),
				zap.Int("attempt", attempt),
			)
			return
		}
		lastErr = err

		delay := c.backoff.Next()
		c.log.Warn("RabbitMQ connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr),
		)

		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(c.ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	c.mu.Lock()
	c.cycle = nil
	c.mu.Unlock()
	if c.ctx.Err() != nil {
		cycle.err = ErrClosed
		return
	}
	cycle.err = fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) connect() (Connection, Channel, error) {
	conn, err := c.dial(c.url, c.heartbeat)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.Confirm(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to enable confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(c.exchange, c.kind); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}

	return conn, ch, nil
}

func (c *Client) closeLocked() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryHandler receives the body and routing key of each message.
type DeliveryHandler func(routingKey string, body []byte)

// Consumer reads the device logs exchange through an exclusive, server-named
// queue. It reconnects with backoff until its context is cancelled.
type Consumer struct {
	url         string
	exchange    string
	kind        string
	routingKeys []string
	heartbeat   time.Duration
	backoff     Backoff

	log *zap.Logger
}

func NewConsumer(cfg config.RabbitMQConfig) *Consumer {
	keys := cfg.LogsRoutingKeys
	if len(keys) == 0 {
		keys = []string{"#"}
	}

	return &Consumer{
		url:         cfg.URI,
		exchange:    cfg.LogsExchangeName,
		kind:        cfg.LogsExchangeType,
		routingKeys: keys,
		heartbeat:   cfg.Heartbeat,
		backoff: Backoff{
			Base: cfg.LogsRetryDelay,
			Max:  cfg.LogsMaxRetryDelay,
		},
		log: logger.Named("rabbitmq_consumer"),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler DeliveryHandler) {
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.log.Info("Log consumer stopped")
			return
		}

		delay := c.backoff.Next()
		c.log.Warn("Log consumer disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", delay),
			logger.Event("consumer_reconnect"),
		)

		if sleepContext(ctx, delay) != nil {
			c.log.Info("Log consumer stopped")
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, handler DeliveryHandler) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{Heartbeat: c.heartbeat, Locale: "en_US"})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.exchange, c.kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}

	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range c.routingKeys {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.backoff.Reset()
	c.log.Info("Log consumer started",
		zap.String("exchange", c.exchange),
		zap.String("queue", q.Name),
		zap.Strings("routing_keys", c.routingKeys),
	)

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("connection closed")
			}
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handler(d.RoutingKey, d.Body)
		}
	}
}

package rabbitmq

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNacked      = errors.New("rabbitmq: message nacked by broker")
	ErrUnavailable = errors.New("rabbitmq: broker unavailable")
	ErrClosed      = errors.New("rabbitmq: client closed")
)

// Connection is the subset of *amqp.Connection the client needs.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Channel is a confirm-mode publishing channel.
type Channel interface {
	ExchangeDeclare(name, kind string) error
	Confirm() error
	PublishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string, heartbeat time.Duration) (Connection, error)

// DialAMQP is the production Dialer.
func DialAMQP(url string, heartbeat time.Duration) (Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) ExchangeDeclare(name, kind string) error {
	return c.ch.ExchangeDeclare(
		name,  // name
		kind,  // type
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

func (c *amqpChannel) Confirm() error {
	return c.ch.Confirm(false)
}

func (c *amqpChannel) PublishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return err
	}
	if dc == nil {
		return nil
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (c *amqpChannel) IsClosed() bool {
	return c.ch.IsClosed()
}

func (c *amqpChannel) Close() error {
	return c.ch.Close()
}

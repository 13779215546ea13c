package mqtt

import (
	"context"
	"fmt"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/logger"
	pkgmqtt "device-fleet-manager/pkg/mqtt"
)

// Transport is the part of the MQTT client used by the publisher and the
// log subscriber.
type Transport interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	IsConnected() bool
}

// NewTransport builds the broker client from configuration.
func NewTransport(cfg config.MQTTConfig) *pkgmqtt.Client {
	return pkgmqtt.NewClient(&pkgmqtt.Config{
		Broker:               cfg.Broker,
		ClientID:             cfg.ClientID,
		Username:             cfg.Username,
		Password:             cfg.Password,
		CleanSession:         true,
		KeepAlive:            cfg.KeepAlive,
		ConnectTimeout:       cfg.ConnectTimeout,
		AutoReconnect:        true,
		MaxReconnectInterval: cfg.MaxReconnectInterval,
	}, logger.Named("mqtt"))
}

// Publisher sends device update notifications to devices/<mac>/updates.
type Publisher struct {
	transport   Transport
	topicFormat string
}

func NewPublisher(transport Transport, topicFormat string) *Publisher {
	if topicFormat == "" {
		topicFormat = "devices/%s/updates"
	}
	return &Publisher{transport: transport, topicFormat: topicFormat}
}

func (p *Publisher) Topic(macID string) string {
	return fmt.Sprintf(p.topicFormat, macID)
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.transport.IsConnected() {
		return fmt.Errorf("mqtt: not connected")
	}
	return p.transport.Publish(p.Topic(routingKey), 1, false, body)
}

package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"device-fleet-manager/internal/logger"
	pkgmqtt "device-fleet-manager/pkg/mqtt"
	"device-fleet-manager/pkg/utils"

	"go.uber.org/zap"
)

// Subscriber is the part of the MQTT client the log subscriber needs.
type Subscriber interface {
	Connect() error
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// MQTTIngestionClient wires the device logs topic into the processor.
type MQTTIngestionClient struct {
	client    Subscriber
	topic     string
	qos       byte
	processor *Processor
	log       *zap.Logger

	mu      sync.Mutex
	started bool
}

func NewMQTTIngestionClient(client Subscriber, topic string, qos byte, processor *Processor) (*MQTTIngestionClient, error) {
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if topic == "" {
		return nil, errors.New("no MQTT logs topic configured")
	}

	return &MQTTIngestionClient{
		client:    client,
		topic:     topic,
		qos:       qos,
		processor: processor,
		log:       logger.Named("mqtt_ingestion"),
	}, nil
}

// Start connects and subscribes to the logs topic.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	if err := c.client.Subscribe(c.topic, c.qos, c.processor.HandleMQTT); err != nil {
		c.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", c.topic, err)
	}

	c.log.Info("Listening for device logs", zap.String("topic", c.topic))
	c.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.log.Warn("Failed to unsubscribe from MQTT logs topic", zap.Error(err))
	}
	c.client.Disconnect()
	c.started = false
}

// macFromTopic extracts the MAC from devices/<mac>/logs.
func macFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" || parts[2] != "logs" {
		return ""
	}
	return utils.SanitizeMAC(parts[1])
}

package notification

import (
	"context"

	"device-fleet-manager/internal/logger"

	"go.uber.org/zap"
)

// LogPublisher writes notifications to the log instead of a broker. Used
// when NOTIFICATION_DEBUG is set.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.Named("notification_debug")}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.log.Info("Device notification",
		zap.String("routing_key", routingKey),
		zap.ByteString("body", body),
		logger.Event("notification_debug"),
	)
	return nil
}

package notification

import "context"

//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks

// Notifier schedules side effects of a state change. Calls never block on
// delivery and never report delivery failures.
type Notifier interface {
	NotifyDevice(macID string)
	SendEmail(templateID string, data map[string]interface{}, recipient string)
}

// Publisher delivers a message on a per-device routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Mailer renders and sends a templated email.
type Mailer interface {
	Send(ctx context.Context, templateID string, data map[string]interface{}, recipient string) error
}

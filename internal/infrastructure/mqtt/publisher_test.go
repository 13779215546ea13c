package mqtt

import (
	"context"
	"testing"

	pkgmqtt "device-fleet-manager/pkg/mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	connected bool
	topics    []string
	payloads  [][]byte
	handlers  map[string]pkgmqtt.MessageHandler
}

func (f *fakeTransport) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler pkgmqtt.MessageHandler) error {
	if f.handlers == nil {
		f.handlers = make(map[string]pkgmqtt.MessageHandler)
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func TestPublisher_PublishesToDeviceTopic(t *testing.T) {
	transport := &fakeTransport{connected: true}
	p := NewPublisher(transport, "")

	require.NoError(t, p.Publish(context.Background(), "AA:BB:CC:DD:EE:FF", []byte(" ")))
	assert.Equal(t, []string{"devices/AA:BB:CC:DD:EE:FF/updates"}, transport.topics)
	assert.Equal(t, []byte(" "), transport.payloads[0])
}

func TestPublisher_NotConnected(t *testing.T) {
	p := NewPublisher(&fakeTransport{}, "devices/%s/updates")
	assert.Error(t, p.Publish(context.Background(), "MAC", []byte(" ")))
}

func TestPublisher_CancelledContext(t *testing.T) {
	transport := &fakeTransport{connected: true}
	p := NewPublisher(transport, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, "MAC", nil), context.Canceled)
	assert.Empty(t, transport.topics)
}

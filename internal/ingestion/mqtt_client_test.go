package ingestion

import (
	"errors"
	"testing"
	"time"

	"device-fleet-manager/internal/testutil"
	pkgmqtt "device-fleet-manager/pkg/mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	connectErr   error
	handlers     map[string]pkgmqtt.MessageHandler
	unsubscribed []string
	disconnects  int
}

func (f *fakeSubscriber) Connect() error { return f.connectErr }

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler pkgmqtt.MessageHandler) error {
	if f.handlers == nil {
		f.handlers = make(map[string]pkgmqtt.MessageHandler)
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeSubscriber) Disconnect() { f.disconnects++ }

func TestMQTTIngestionClientLifecycle(t *testing.T) {
	repo := testutil.NewStore().DeviceLogs()
	p := NewProcessor(repo, nil, 1, 1, 10, time.Hour)
	p.Start()
	defer p.Stop()

	sub := &fakeSubscriber{}
	client, err := NewMQTTIngestionClient(sub, "devices/+/logs", 1, p)
	require.NoError(t, err)

	require.NoError(t, client.Start())
	require.NoError(t, client.Start())
	handler, ok := sub.handlers["devices/+/logs"]
	require.True(t, ok)

	handler("devices/AA:BB/logs", []byte(`{"log_class":"boot","level":"info"}`))
	require.Eventually(t, func() bool {
		return len(storedLogs(t, repo, "AA:BB")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	client.Stop()
	client.Stop()
	assert.Equal(t, []string{"devices/+/logs"}, sub.unsubscribed)
	assert.Equal(t, 1, sub.disconnects)
}

func TestMQTTIngestionClientConnectFailure(t *testing.T) {
	p := NewProcessor(testutil.NewStore().DeviceLogs(), nil, 1, 1, 10, time.Hour)
	sub := &fakeSubscriber{connectErr: errors.New("refused")}

	client, err := NewMQTTIngestionClient(sub, "devices/+/logs", 1, p)
	require.NoError(t, err)
	assert.Error(t, client.Start())

	_, err = NewMQTTIngestionClient(sub, "", 1, p)
	assert.Error(t, err)
}

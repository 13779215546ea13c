package ingestion

import (
	"testing"

	domainLog "device-fleet-manager/internal/domain/devicelog"

	"github.com/stretchr/testify/assert"
)

func TestHubRoutesByMac(t *testing.T) {
	hub := NewHub()
	first, cancelFirst := hub.Subscribe("AA:BB")
	other, cancelOther := hub.Subscribe("CC:DD")
	defer cancelOther()

	assert.Equal(t, 1, hub.Broadcast(&domainLog.Log{MacID: "AA:BB"}))
	assert.Len(t, first, 1)
	assert.Empty(t, other)

	cancelFirst()
	cancelFirst()
	assert.Zero(t, hub.Subscribers("AA:BB"))
	assert.Zero(t, hub.Broadcast(&domainLog.Log{MacID: "AA:BB"}))

	_, open := <-first
	assert.True(t, open)
	_, open = <-first
	assert.False(t, open)
}

func TestHubSkipsFullSubscribers(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("AA:BB")
	defer cancel()

	for i := 0; i < subscriberBuffer; i++ {
		assert.Equal(t, 1, hub.Broadcast(&domainLog.Log{MacID: "AA:BB"}))
	}
	assert.Zero(t, hub.Broadcast(&domainLog.Log{MacID: "AA:BB"}))
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	err := Init("production", "loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestInitHonoursLevelOverride(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	require.NoError(t, Init("development", "warn"))
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("development", ""))
	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))
}

func TestPackageHelpersTagEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Info("device activated", Event("device_activated"))
	WithRequestID("req-1").Warn("slow request")
	Named("rabbitmq_client").Error("dial failed")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "device_activated", entries[0].ContextMap()["event"])
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "rabbitmq_client", entries[2].ContextMap()["component"])
}

func TestSetNilFallsBackToNop(t *testing.T) {
	Set(nil)
	assert.NotPanics(t, func() { Info("dropped") })
}

package ingestion

import (
	"encoding/json"
	"time"

	domainLog "device-fleet-manager/internal/domain/devicelog"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
)

// LogMessage is the wire form of a device log on both the logs exchange and
// the MQTT logs topic.
type LogMessage struct {
	UserID    string                 `json:"user_id"`
	DeviceID  string                 `json:"device_id"`
	MacID     string                 `json:"mac_id"`
	LogClass  string                 `json:"log_class"`
	Level     string                 `json:"level"`
	ExtraData map[string]interface{} `json:"extra_data"`
	LoggedAt  time.Time              `json:"logged_at"`
}

// ParseLogMessage decodes a JSON payload. A missing logged_at is filled with
// the receive time.
func ParseLogMessage(payload []byte) (*LogMessage, error) {
	var msg LogMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	msg.MacID = utils.SanitizeMAC(msg.MacID)
	if msg.LoggedAt.IsZero() {
		msg.LoggedAt = time.Now()
	}
	return &msg, nil
}

// ToLog converts a validated message into a storable entry.
func (m *LogMessage) ToLog() *domainLog.Log {
	entry := &domainLog.Log{
		MacID:     m.MacID,
		LogClass:  m.LogClass,
		Level:     m.Level,
		ExtraData: m.ExtraData,
		LoggedAt:  m.LoggedAt,
	}
	if id, err := uuid.Parse(m.DeviceID); err == nil {
		entry.DeviceID = &id
	}
	if id, err := uuid.Parse(m.UserID); err == nil {
		entry.AccountID = &id
	}
	return entry
}

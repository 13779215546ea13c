package devicelog

import (
	"time"

	"github.com/google/uuid"
)

// Log is a single entry shipped by device firmware.
type Log struct {
	ID        uuid.UUID
	DeviceID  *uuid.UUID
	AccountID *uuid.UUID
	MacID     string
	LogClass  string
	Level     string
	ExtraData map[string]interface{}
	LoggedAt  time.Time
	CreatedAt time.Time
}

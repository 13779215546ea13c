package ingestion

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

const maxFieldLength = 255

// ValidateLogMessage validates a decoded log message
func ValidateLogMessage(msg *LogMessage) error {
	if msg.MacID == "" {
		return &ValidationError{Field: "mac_id", Message: "mac_id is required"}
	}
	if len(msg.MacID) > maxFieldLength {
		return &ValidationError{Field: "mac_id", Message: "mac_id is too long"}
	}

	if msg.LogClass == "" {
		return &ValidationError{Field: "log_class", Message: "log_class is required"}
	}
	if len(msg.LogClass) > maxFieldLength {
		return &ValidationError{Field: "log_class", Message: "log_class is too long"}
	}

	if msg.Level == "" {
		return &ValidationError{Field: "level", Message: "level is required"}
	}

	if msg.DeviceID != "" {
		if _, err := uuid.Parse(msg.DeviceID); err != nil {
			return &ValidationError{Field: "device_id", Message: "device_id must be valid UUID"}
		}
	}
	if msg.UserID != "" {
		if _, err := uuid.Parse(msg.UserID); err != nil {
			return &ValidationError{Field: "user_id", Message: "user_id must be valid UUID"}
		}
	}

	if msg.LoggedAt.IsZero() {
		return &ValidationError{Field: "logged_at", Message: "logged_at is required"}
	}

	return nil
}

package device

import (
	"time"

	"device-fleet-manager/internal/domain/account"

	"github.com/google/uuid"
)

// Device represents a managed endpoint identified by its MAC
type Device struct {
	ID            uuid.UUID
	Name          string
	MacID         string
	IsActive      bool
	CreatorID     uuid.UUID
	AgentID       uuid.UUID
	AssignedUsers []*account.Account
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAssigned reports whether accountID is in the assignment set.
func (d *Device) IsAssigned(accountID uuid.UUID) bool {
	for _, u := range d.AssignedUsers {
		if u.ID == accountID {
			return true
		}
	}
	return false
}

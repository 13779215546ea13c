package agent

import (
	"time"

	"github.com/google/uuid"
)

// Agent is an organisation that owns devices and employs accounts.
type Agent struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Address     string
	RoleID      uuid.UUID
	CreatedByID *uuid.UUID
	CreatedAt   time.Time
}

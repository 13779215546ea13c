package account

import (
	"time"

	"device-fleet-manager/internal/domain/role"

	"github.com/google/uuid"
)

// Account represents a person who can sign in or be assigned to devices.
type Account struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	LasrraID       string
	Address        string
	PasswordHashed string
	IsActive       bool
	RoleID         uuid.UUID
	Role           *role.Role
	AgentID        *uuid.UUID
	CreatedByID    *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// RoleName returns "" when the role was not loaded.
func (a *Account) RoleName() string {
	if a.Role == nil {
		return ""
	}
	return a.Role.Name
}

func (a *Account) IsSuperuser() bool {
	return a.RoleName() == role.Superuser
}

func (a *Account) BelongsToAgent(agentID uuid.UUID) bool {
	return a.AgentID != nil && *a.AgentID == agentID
}

// PasswordResetToken is a one-time grant to set a new password.
type PasswordResetToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *PasswordResetToken) IsUsed() bool {
	return t.UsedAt != nil
}

// History records an account's agency and role after each reassignment.
type History struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	AgentID   *uuid.UUID
	RoleID    uuid.UUID
	CreatedAt time.Time
}

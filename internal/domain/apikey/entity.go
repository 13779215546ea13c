package apikey

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates device-facing requests. Only the prefix and a hash of
// the secret are stored.
type APIKey struct {
	ID         uuid.UUID
	Name       string
	KeyPrefix  string
	HashedKey  string
	IsActive   bool
	AccountID  uuid.UUID
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

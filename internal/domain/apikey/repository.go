package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, keyID uuid.UUID) (*APIKey, error)
	GetByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	List(ctx context.Context) ([]*APIKey, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*APIKey, error)
	Deactivate(ctx context.Context, keyID uuid.UUID) error
	TouchLastUsed(ctx context.Context, keyID uuid.UUID, at time.Time) error
}

// VerificationCache remembers recently verified keys so that device polling
// does not pay for a bcrypt comparison on every request.
type VerificationCache interface {
	Get(ctx context.Context, plaintext string) (*APIKey, bool)
	Set(ctx context.Context, plaintext string, key *APIKey)
	Evict(ctx context.Context, keyID uuid.UUID)
}

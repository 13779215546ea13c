package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileUpdate holds the self-service fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
}

type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, accountID uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByPhone(ctx context.Context, phone string) (*Account, error)
	GetByLasrraID(ctx context.Context, lasrraID string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*Account, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*Account, error)
	FindAgentOwner(ctx context.Context, agentID uuid.UUID) (*Account, error)

	UpdateProfile(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) error
	SetActive(ctx context.Context, accountID uuid.UUID, active bool) error
	SetRole(ctx context.Context, accountID, roleID uuid.UUID) error
	UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error
	// MoveToAgent sets the account's agency, drops every device assignment it
	// holds and appends entry to its history in one transaction. It returns
	// the mac ids of the devices that lost the account.
	MoveToAgent(ctx context.Context, accountID, agentID uuid.UUID, entry *History) ([]string, error)

	AddHistory(ctx context.Context, entry *History) error
	ListHistory(ctx context.Context, accountID uuid.UUID) ([]*History, error)
}

type ResetTokenRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	// Redeem marks the token used and stores the new password hash in one
	// transaction. It fails with ErrResetTokenUsed if another request won.
	Redeem(ctx context.Context, tokenID, accountID uuid.UUID, passwordHash string, now time.Time) error
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

package email

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, record *Record) error
	MarkDelivered(ctx context.Context, recordID uuid.UUID) error
	MarkFailed(ctx context.Context, recordID uuid.UUID, reason string) error
	ListByRecipient(ctx context.Context, recipient string) ([]*Record, error)
}

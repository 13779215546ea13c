package role

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, roleID uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Rename(ctx context.Context, roleID uuid.UUID, name string) error
	Delete(ctx context.Context, roleID uuid.UUID) error
	CountAccounts(ctx context.Context, roleID uuid.UUID) (int64, error)
}

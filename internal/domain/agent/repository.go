package agent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, agentID uuid.UUID) (*Agent, error)
	GetByName(ctx context.Context, name string) (*Agent, error)
	GetByEmail(ctx context.Context, email string) (*Agent, error)
	List(ctx context.Context) ([]*Agent, error)
}

package device

import (
	"context"

	"github.com/google/uuid"
)

// Update holds the editable fields; nil means unchanged.
type Update struct {
	Name  *string
	MacID *string
}

// Repository defines the interface for device repository operations
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, deviceID uuid.UUID) (*Device, error)
	GetByMacID(ctx context.Context, macID string) (*Device, error)
	GetByName(ctx context.Context, name string) (*Device, error)
	List(ctx context.Context) ([]*Device, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*Device, error)
	ListOwned(ctx context.Context, agentID *uuid.UUID, creatorID uuid.UUID) ([]*Device, error)
	ListAssignedTo(ctx context.Context, accountID uuid.UUID) ([]*Device, error)

	Update(ctx context.Context, deviceID uuid.UUID, update Update) error
	SetActive(ctx context.Context, deviceID uuid.UUID, active bool) error
	SetAgent(ctx context.Context, deviceID, agentID uuid.UUID) error
	Delete(ctx context.Context, deviceID uuid.UUID) error

	// AddAssignment is a no-op when the pair already exists.
	AddAssignment(ctx context.Context, deviceID, accountID uuid.UUID) error
	// RemoveAssignment is a no-op when the pair does not exist.
	RemoveAssignment(ctx context.Context, deviceID, accountID uuid.UUID) error
}

package role

import (
	"time"

	domainRole "device-fleet-manager/internal/domain/role"

	"github.com/google/uuid"
)

type RoleRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type RoleResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func ToRoleResponse(r *domainRole.Role) *RoleResponse {
	if r == nil {
		return nil
	}
	return &RoleResponse{
		ID:        r.ID,
		Name:      r.Name,
		IsDefault: domainRole.IsDefault(r.Name),
		CreatedAt: r.CreatedAt,
	}
}

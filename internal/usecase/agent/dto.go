package agent

import (
	"time"

	domainAgent "device-fleet-manager/internal/domain/agent"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/device"

	"github.com/google/uuid"
)

// CreateAgentRequest describes the agency and the account that will head it.
type CreateAgentRequest struct {
	Name    string                       `json:"name" validate:"required,min=2,max=255"`
	Email   string                       `json:"email" validate:"required,email,max=255"`
	Address string                       `json:"address" validate:"omitempty,max=500"`
	Owner   account.CreateAccountRequest `json:"owner"`
}

type AgentResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Address     string     `json:"address"`
	RoleID      uuid.UUID  `json:"role_id"`
	CreatedByID *uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateAgentResponse struct {
	Agent *AgentResponse           `json:"agent"`
	Owner *account.AccountResponse `json:"owner"`
}

type AgentProfileResponse struct {
	Agent     *AgentResponse            `json:"agent"`
	Owner     *account.AccountResponse  `json:"owner"`
	Employees []account.AccountResponse `json:"employees"`
	Devices   []device.DeviceResponse   `json:"devices"`
}

func ToAgentResponse(a *domainAgent.Agent) *AgentResponse {
	if a == nil {
		return nil
	}
	return &AgentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Address:     a.Address,
		RoleID:      a.RoleID,
		CreatedByID: a.CreatedByID,
		CreatedAt:   a.CreatedAt,
	}
}

package account

import (
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"

	"github.com/google/uuid"
)

type CreateAccountRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"required,phone"`
	LasrraID  string `json:"lasrra_id" validate:"required,lasrra"`
	Address   string `json:"address" validate:"omitempty,max=500"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type CreateManagerRequest struct {
	CreateAccountRequest
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}

type CreateEmployeeRequest struct {
	CreateAccountRequest
	RoleID uuid.UUID `json:"role_id" validate:"required"`
	// AgentID is only honoured for superusers; everyone else hires into
	// their own agency.
	AgentID *uuid.UUID `json:"agent_id"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
}

type ChangeAgentRequest struct {
	AgentUserID uuid.UUID `json:"agent_user_id" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	LasrraID    string     `json:"lasrra_id"`
	Address     string     `json:"address"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	Role        string     `json:"role"`
	RoleID      uuid.UUID  `json:"role_id"`
	AgentID     *uuid.UUID `json:"agent_id"`
	CreatedByID *uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *AccountResponse `json:"user"`
	AgentID   *uuid.UUID       `json:"agent_id"`
	AgentName string           `json:"agent_name"`
}

type HistoryResponse struct {
	ID        uuid.UUID  `json:"id"`
	AgentID   *uuid.UUID `json:"agent_id"`
	RoleID    uuid.UUID  `json:"role_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToAccountResponse(a *domainAccount.Account) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		Phone:       a.Phone,
		LasrraID:    a.LasrraID,
		Address:     a.Address,
		IsActive:    a.IsActive,
		IsSuperuser: a.IsSuperuser(),
		Role:        a.RoleName(),
		RoleID:      a.RoleID,
		AgentID:     a.AgentID,
		CreatedByID: a.CreatedByID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func ToAccountResponses(accounts []*domainAccount.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = *ToAccountResponse(a)
	}
	return out
}

func ToHistoryResponse(h *domainAccount.History) HistoryResponse {
	return HistoryResponse{
		ID:        h.ID,
		AgentID:   h.AgentID,
		RoleID:    h.RoleID,
		CreatedAt: h.CreatedAt,
	}
}

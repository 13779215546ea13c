package device

import (
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainLog "device-fleet-manager/internal/domain/devicelog"

	"github.com/google/uuid"
)

type CreateDeviceRequest struct {
	Name    string     `json:"name" validate:"required,min=2,max=255"`
	MacID   string     `json:"mac_id" validate:"required,mac,max=64"`
	AgentID *uuid.UUID `json:"agent_id" validate:"omitempty"`
}

type UpdateDeviceRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=255"`
	MacID *string `json:"mac_id" validate:"omitempty,mac,max=64"`
}

type AssignRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type AllocateRequest struct {
	AgentUserID uuid.UUID `json:"agent_user_id" validate:"required"`
}

// UpdateDeviceUserRequest carries a credential set from the device itself.
type UpdateDeviceUserRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	AgentID   *uuid.UUID `json:"agent_id"`
}

type DeviceResponse struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	MacID         string         `json:"mac_id"`
	IsActive      bool           `json:"is_active"`
	CreatorID     uuid.UUID      `json:"creator_id"`
	AgentID       uuid.UUID      `json:"agent_id"`
	AssignedUsers []UserResponse `json:"assigned_users"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type AgentResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Address string    `json:"address"`
}

// DeviceUser is an account the device lets sign in locally.
type DeviceUser struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	HashedPassword string    `json:"hashed_password"`
}

type DeviceConfig struct {
	DeviceID    uuid.UUID    `json:"device_id"`
	IsActive    bool         `json:"is_active"`
	RabbitMQURI string       `json:"rabbitmq_uri"`
	APIBaseURI  string       `json:"api_base_uri"`
	SecretKey   string       `json:"secret_key"`
	Users       []DeviceUser `json:"users"`
}

type DeviceConfigResponse struct {
	Config        DeviceConfig   `json:"config"`
	AssignedUsers []UserResponse `json:"assigned_users"`
	Agent         *AgentResponse `json:"agent"`
}

type DeviceLogResponse struct {
	ID        uuid.UUID              `json:"id"`
	DeviceID  *uuid.UUID             `json:"device_id"`
	UserID    *uuid.UUID             `json:"user_id"`
	MacID     string                 `json:"mac_id"`
	LogClass  string                 `json:"log_class"`
	Level     string                 `json:"level"`
	ExtraData map[string]interface{} `json:"extra_data"`
	LoggedAt  time.Time              `json:"logged_at"`
}

func ToUserResponse(a *domainAccount.Account) UserResponse {
	return UserResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.RoleName(),
		IsActive:  a.IsActive,
		AgentID:   a.AgentID,
	}
}

func ToDeviceUser(a *domainAccount.Account) DeviceUser {
	return DeviceUser{
		ID:             a.ID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Role:           a.RoleName(),
		IsActive:       a.IsActive,
		HashedPassword: a.PasswordHashed,
	}
}

func ToDeviceResponse(d *domainDevice.Device) *DeviceResponse {
	if d == nil {
		return nil
	}
	users := make([]UserResponse, len(d.AssignedUsers))
	for i, u := range d.AssignedUsers {
		users[i] = ToUserResponse(u)
	}
	return &DeviceResponse{
		ID:            d.ID,
		Name:          d.Name,
		MacID:         d.MacID,
		IsActive:      d.IsActive,
		CreatorID:     d.CreatorID,
		AgentID:       d.AgentID,
		AssignedUsers: users,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func ToDeviceResponses(devices []*domainDevice.Device) []DeviceResponse {
	out := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		out[i] = *ToDeviceResponse(d)
	}
	return out
}

func ToAgentResponse(a *domainAgent.Agent) *AgentResponse {
	if a == nil {
		return nil
	}
	return &AgentResponse{
		ID:      a.ID,
		Name:    a.Name,
		Email:   a.Email,
		Address: a.Address,
	}
}

func ToDeviceLogResponse(l *domainLog.Log) DeviceLogResponse {
	return DeviceLogResponse{
		ID:        l.ID,
		DeviceID:  l.DeviceID,
		UserID:    l.AccountID,
		MacID:     l.MacID,
		LogClass:  l.LogClass,
		Level:     l.Level,
		ExtraData: l.ExtraData,
		LoggedAt:  l.LoggedAt,
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleModel represents the database model for Role
type RoleModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

func (RoleModel) TableName() string {
	return "roles"
}

func (m *RoleModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// AgentModel represents the database model for Agent
type AgentModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email       string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Address     string     `gorm:"type:text"`
	RoleID      uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time  `gorm:"not null"`
}

func (AgentModel) TableName() string {
	return "agents"
}

func (m *AgentModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// AccountModel represents the database model for Account
type AccountModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	FirstName      string     `gorm:"type:varchar(100);not null"`
	LastName       string     `gorm:"type:varchar(100);not null"`
	Email          string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone          string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	LasrraID       string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Address        string     `gorm:"type:text"`
	PasswordHashed string     `gorm:"type:varchar(255);not null"`
	IsActive       bool       `gorm:"default:false;not null"`
	RoleID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Role           *RoleModel `gorm:"foreignKey:RoleID"`
	AgentID        *uuid.UUID `gorm:"type:uuid;index"`
	CreatedByID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// AccountHistoryModel represents the database model for History
type AccountHistoryModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	AccountID uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgentID   *uuid.UUID `gorm:"type:uuid"`
	RoleID    uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt time.Time  `gorm:"not null"`
}

func (AccountHistoryModel) TableName() string {
	return "account_histories"
}

func (m *AccountHistoryModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// PasswordResetTokenModel represents the database model for PasswordResetToken
type PasswordResetTokenModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	AccountID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Token     string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	UsedAt    *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"not null"`
}

func (PasswordResetTokenModel) TableName() string {
	return "password_reset_tokens"
}

func (m *PasswordResetTokenModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// APIKeyModel represents the database model for APIKey
type APIKeyModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Name       string    `gorm:"type:varchar(255);not null"`
	KeyPrefix  string    `gorm:"type:varchar(16);not null;uniqueIndex"`
	HashedKey  string    `gorm:"type:varchar(255);not null"`
	IsActive   bool      `gorm:"default:true;not null"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index"`
	LastUsedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (APIKeyModel) TableName() string {
	return "api_keys"
}

func (m *APIKeyModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceModel represents the database model for Devices.
type DeviceModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	MacID     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	IsActive  bool      `gorm:"default:false;not null"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;index"`
	AgentID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}

func (m *DeviceModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// DeviceAssignmentModel links a device to an account it is assigned to.
type DeviceAssignmentModel struct {
	DeviceID  uuid.UUID `gorm:"type:uuid;primary_key"`
	AccountID uuid.UUID `gorm:"type:uuid;primary_key;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (DeviceAssignmentModel) TableName() string {
	return "device_assignments"
}

// DeviceLogModel represents the database model for device logs
type DeviceLogModel struct {
	ID        uuid.UUID              `gorm:"type:uuid;primary_key"`
	DeviceID  *uuid.UUID             `gorm:"type:uuid;index"`
	AccountID *uuid.UUID             `gorm:"type:uuid"`
	MacID     string                 `gorm:"type:varchar(64);not null;index"`
	LogClass  string                 `gorm:"type:varchar(100)"`
	Level     string                 `gorm:"type:varchar(20)"`
	ExtraData map[string]interface{} `gorm:"type:text;serializer:json"`
	LoggedAt  time.Time              `gorm:"not null;index"`
	CreatedAt time.Time              `gorm:"not null"`
}

func (DeviceLogModel) TableName() string {
	return "device_logs"
}

func (m *DeviceLogModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// EmailRecordModel represents the database model for an outgoing email
type EmailRecordModel struct {
	ID           uuid.UUID              `gorm:"type:uuid;primary_key"`
	Recipient    string                 `gorm:"type:varchar(255);not null;index"`
	TemplateID   string                 `gorm:"type:varchar(100);not null"`
	TemplateData map[string]interface{} `gorm:"type:text;serializer:json"`
	Sender       string                 `gorm:"type:varchar(255);not null"`
	Delivered    bool                   `gorm:"default:false;not null"`
	Error        *string                `gorm:"type:text"`
	CreatedAt    time.Time              `gorm:"not null"`
}

func (EmailRecordModel) TableName() string {
	return "email_records"
}

func (m *EmailRecordModel) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

package email

import (
	"time"

	"github.com/google/uuid"
)

const (
	TemplateResetPassword     = "reset_password"
	TemplateCreateAccount     = "create_account"
	TemplateActivateAccount   = "activate_account"
	TemplateDeactivateAccount = "deactivate_account"
	TemplateActivateDevice    = "activate_device"
	TemplateDeactivateDevice  = "deactivate_device"
)

// Record is the audit trail of an outgoing email.
type Record struct {
	ID           uuid.UUID
	Recipient    string
	TemplateID   string
	TemplateData map[string]interface{}
	Sender       string
	Delivered    bool
	Error        *string
	CreatedAt    time.Time
}

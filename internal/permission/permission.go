// Package permission decides whether a caller may perform an action, either by
// role-set membership or by the caller's relationship to the target resource.
package permission

import (
	"device-fleet-manager/internal/domain/account"
	"device-fleet-manager/internal/domain/device"
	"device-fleet-manager/internal/domain/role"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/google/uuid"
)

// RoleSet is an allow-list of role names.
type RoleSet []string

var (
	SuperuserOnly       = RoleSet{role.Superuser}
	ManagerAndSuperuser = RoleSet{role.Superuser, role.AgentManager, role.Agent}
	StaffAndSuperuser   = RoleSet{role.Superuser, role.AgentManager, role.AgentSupervisor, role.Agent}
	LoginRoles          = StaffAndSuperuser
)

func (s RoleSet) Contains(name string) bool {
	for _, r := range s {
		if r == name {
			return true
		}
	}
	return false
}

// Caller is the authenticated identity a request acts on behalf of.
type Caller struct {
	AccountID uuid.UUID
	RoleName  string
	AgentID   *uuid.UUID
	IsActive  bool
}

func CallerFrom(a *account.Account) *Caller {
	return &Caller{
		AccountID: a.ID,
		RoleName:  a.RoleName(),
		AgentID:   a.AgentID,
		IsActive:  a.IsActive,
	}
}

func (c *Caller) IsSuperuser() bool {
	return c != nil && c.RoleName == role.Superuser
}

func (c *Caller) sameAgent(agentID *uuid.UUID) bool {
	return c.AgentID != nil && agentID != nil && *c.AgentID == *agentID
}

// Require returns ErrAuthenticationRequired for a nil caller and ErrForbidden
// when the caller's role is outside set.
func Require(c *Caller, set RoleSet) error {
	if c == nil {
		return appErrors.ErrAuthenticationRequired
	}
	if !set.Contains(c.RoleName) {
		return appErrors.ErrForbidden
	}
	return nil
}

// CanAccessDevice: superuser, the device's creator, or a member of the
// device's agency.
func CanAccessDevice(c *Caller, d *device.Device) bool {
	if c == nil || d == nil {
		return false
	}
	return c.IsSuperuser() || d.CreatorID == c.AccountID || c.sameAgent(&d.AgentID)
}

// CanManageAccount: superuser, or the target belongs to the caller's agency.
func CanManageAccount(c *Caller, target *account.Account) bool {
	if c == nil || target == nil {
		return false
	}
	return c.IsSuperuser() || c.sameAgent(target.AgentID)
}

// CanViewAssignedDevices: the target themself, a superuser, or the target's creator.
func CanViewAssignedDevices(c *Caller, target *account.Account) bool {
	if c == nil || target == nil {
		return false
	}
	if c.AccountID == target.ID || c.IsSuperuser() {
		return true
	}
	return target.CreatedByID != nil && *target.CreatedByID == c.AccountID
}

func CanViewAgent(c *Caller, agentID uuid.UUID) bool {
	if c == nil {
		return false
	}
	return c.IsSuperuser() || c.sameAgent(&agentID)
}

// Check converts a relationship decision into an error.
func Check(c *Caller, allowed bool) error {
	if c == nil {
		return appErrors.ErrAuthenticationRequired
	}
	if !allowed {
		return appErrors.ErrForbidden
	}
	return nil
}

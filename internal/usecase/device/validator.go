package device

import (
	"context"
	"errors"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/permission"
)

// ValidateOfficer checks that the account may be assigned to a device.
func ValidateOfficer(a *domainAccount.Account) error {
	if a.RoleName() != domainRole.AgentOfficer {
		return domainDevice.ErrNotAgentOfficer
	}
	return nil
}

// ValidateAgentAccount checks that the account heads an agency.
func ValidateAgentAccount(a *domainAccount.Account) error {
	if a.RoleName() != domainRole.Agent {
		return domainAccount.ErrNotAnAgent
	}
	if a.AgentID == nil {
		return domainAccount.ErrAgentRequired
	}
	return nil
}

// ensureUnique rejects a name or MAC held by a device other than self.
func ensureUnique(ctx context.Context, repo domainDevice.Repository, d *domainDevice.Device, name, macID *string) error {
	if macID != nil {
		existing, err := repo.GetByMacID(ctx, *macID)
		if err == nil && (d == nil || existing.ID != d.ID) {
			return domainDevice.ErrDeviceAlreadyExists.WithDetail("device with mac_id %s already exists", *macID)
		}
		if err != nil && !errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return err
		}
	}
	if name != nil {
		existing, err := repo.GetByName(ctx, *name)
		if err == nil && (d == nil || existing.ID != d.ID) {
			return domainDevice.ErrDeviceAlreadyExists.WithDetail("device with name %s already exists", *name)
		}
		if err != nil && !errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return err
		}
	}
	return nil
}

func checkDeviceAccess(caller *permission.Caller, d *domainDevice.Device) error {
	return permission.Check(caller, permission.CanAccessDevice(caller, d))
}

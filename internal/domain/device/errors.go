package device

import appErrors "device-fleet-manager/pkg/errors"

var (
	ErrDeviceNotFound      = appErrors.NewAppError(appErrors.CodeNotFound, "device not found", nil)
	ErrDeviceAlreadyExists = appErrors.NewAppError(appErrors.CodeAlreadyExists, "device already exists", nil)
	ErrInactiveDevice      = appErrors.NewAppError(appErrors.CodeInactiveDevice, "device is not active", nil)
	ErrNotAgentOfficer     = appErrors.NewAppError(appErrors.CodeForbidden, "user is not an agent officer", nil)
	ErrUserNotAssigned     = appErrors.NewAppError(appErrors.CodeForbidden, "user is not assigned to this device", nil)
)

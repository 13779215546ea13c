package account

import (
	"errors"

	appErrors "device-fleet-manager/pkg/errors"
)

var (
	ErrAccountNotFound      = appErrors.NewAppError(appErrors.CodeNotFound, "user not found", nil)
	ErrAccountAlreadyExists = appErrors.NewAppError(appErrors.CodeAlreadyExists, "user already exists", nil)

	ErrEmployeeRoleNotSelectable = appErrors.NewAppError(appErrors.CodeForbidden, "role can not be selected for an agent employee", nil)
	ErrNotSuperuser              = appErrors.NewAppError(appErrors.CodeBadRequest, "user is not a superuser", nil)
	ErrSelfAssignment            = appErrors.NewAppError(appErrors.CodeBadRequest, "can not assign to self", nil)
	ErrNotAnAgent                = appErrors.NewAppError(appErrors.CodeForbidden, "user is not an agent", nil)
	ErrNotAnEmployee             = appErrors.NewAppError(appErrors.CodeForbidden, "user is not an agent employee", nil)
	ErrAgentRequired             = appErrors.NewAppError(appErrors.CodeBadRequest, "agent_id is required", nil)
)

// Reset token failures share one message so callers can't tell them apart.
var (
	ErrResetTokenUnknown = appErrors.NewAppError(appErrors.CodeInvalidToken, "invalid or expired token", errors.New("reset token not found"))
	ErrResetTokenExpired = appErrors.NewAppError(appErrors.CodeInvalidToken, "invalid or expired token", errors.New("reset token expired"))
	ErrResetTokenUsed    = appErrors.NewAppError(appErrors.CodeInvalidToken, "invalid or expired token", errors.New("reset token already used"))
)

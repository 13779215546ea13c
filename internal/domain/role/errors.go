package role

import appErrors "device-fleet-manager/pkg/errors"

var (
	ErrRoleNotFound         = appErrors.NewAppError(appErrors.CodeNotFound, "role not found", nil)
	ErrRoleAlreadyExists    = appErrors.NewAppError(appErrors.CodeAlreadyExists, "role already exists", nil)
	ErrDefaultRoleProtected = appErrors.NewAppError(appErrors.CodeBadRequest, "default roles can not be modified", nil)
	ErrRoleInUse            = appErrors.NewAppError(appErrors.CodeBadRequest, "role is still assigned to users", nil)
	ErrDefaultRoleMissing   = appErrors.NewAppError(appErrors.CodeServer, "default role is missing", nil)
)

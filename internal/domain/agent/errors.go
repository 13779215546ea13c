package agent

import appErrors "device-fleet-manager/pkg/errors"

var (
	ErrAgentNotFound      = appErrors.NewAppError(appErrors.CodeNotFound, "agent not found", nil)
	ErrAgentAlreadyExists = appErrors.NewAppError(appErrors.CodeAlreadyExists, "agent already exists", nil)
)

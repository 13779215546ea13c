package apikey

import appErrors "device-fleet-manager/pkg/errors"

var (
	ErrAPIKeyNotFound = appErrors.NewAppError(appErrors.CodeNotFound, "api key not found", nil)
	ErrAPIKeyInvalid  = appErrors.NewAppError(appErrors.CodeAuthenticationRequired, "invalid api key", nil)
	ErrNotKeyOwner    = appErrors.NewAppError(appErrors.CodeForbidden, "api key belongs to another user", nil)
)

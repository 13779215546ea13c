package middleware

import (
	"context"
	"strings"

	domainAccount "device-fleet-manager/internal/domain/account"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CallerKey = "caller"

// Authenticator resolves a bearer token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domainAccount.Account, error)
}

// AuthMiddleware accepts "Authorization: <prefix> <jwt>" and stores the
// caller in the context. Inactive accounts are turned away.
func AuthMiddleware(auth Authenticator, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, appErrors.ErrAuthenticationRequired)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], prefix) || parts[1] == "" {
			abortWithError(c, appErrors.ErrInvalidToken)
			return
		}

		account, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !account.IsActive {
			abortWithError(c, appErrors.ErrDisallowedLogin)
			return
		}

		c.Set(CallerKey, permission.CallerFrom(account))
		c.Set("userID", account.ID)
		c.Next()
	}
}

// GetCaller returns the authenticated caller, or nil.
func GetCaller(c *gin.Context) *permission.Caller {
	if v, ok := c.Get(CallerKey); ok {
		if caller, ok := v.(*permission.Caller); ok {
			return caller
		}
	}
	return nil
}

func abortWithError(c *gin.Context, err error) {
	status := appErrors.HTTPStatus(err)
	if appErrors.CodeOf(err) == "" {
		RequestLogger(c).Error("Unhandled middleware error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	utils.ErrorResponse(c, status, appErrors.MessageOf(err))
	c.Abort()
}

package middleware

import (
	"context"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	APIKeyHeader = "X-API-KEY"
	APIKeyKey    = "api_key"
)

type APIKeyVerifier interface {
	Verify(ctx context.Context, plaintext string) (*domainAPIKey.APIKey, error)
}

// APIKeyMiddleware guards device-facing routes with an X-API-KEY header.
func APIKeyMiddleware(verifier APIKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := c.GetHeader(APIKeyHeader)
		if plaintext == "" {
			abortWithError(c, appErrors.ErrAuthenticationRequired)
			return
		}

		key, err := verifier.Verify(c.Request.Context(), plaintext)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(APIKeyKey, key)
		c.Next()
	}
}

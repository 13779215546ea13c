package middleware

import (
	"device-fleet-manager/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	requestLoggerKey   = "request_logger"
	maxRequestIDLength = 128
)

// RequestIDMiddleware reuses a sane incoming X-Request-ID or assigns a new one,
// and stores a logger tagged with it for the rest of the chain.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Set(requestLoggerKey, logger.WithRequestID(requestID))
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// validRequestID accepts printable ASCII only, so ids can be echoed in headers
// and logs unchanged.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RequestLogger returns the request's logger, or one built from whatever id
// is set when the middleware did not run.
func RequestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(requestLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return logger.WithRequestID(GetRequestID(c))
}

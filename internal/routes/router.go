package routes

import (
	"net/http"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/delivery/http/handler"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBody = 1 << 20

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

type Handlers struct {
	Account *handler.AccountHandler
	Agent   *handler.AgentHandler
	Role    *handler.RoleHandler
	APIKey  *handler.APIKeyHandler
	Device  *handler.DeviceHandler
}

type Dependencies struct {
	DB            HealthChecker
	Authenticator middleware.Authenticator
	APIKeys       middleware.APIKeyVerifier
	RateLimiter   *middleware.RateLimiter
	Handlers      Handlers
}

func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	production := cfg.Server.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, body size, rate limit, metrics
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(production))
	router.Use(middleware.CORSMiddleware(cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(maxRequestBody))
	if deps.RateLimiter != nil {
		router.Use(middleware.RateLimitMiddleware(deps.RateLimiter))
	}
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"message": "Database connection failed",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := deps.Handlers
	v1 := router.Group("/api/v1")
	{
		h.Account.RegisterAuthRoutes(v1)

		devices := v1.Group("")
		devices.Use(middleware.APIKeyMiddleware(deps.APIKeys))
		{
			h.Device.RegisterDeviceRoutes(devices)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Authenticator, cfg.JWT.HeaderPrefix))
		{
			h.Account.RegisterRoutes(protected)
			h.Agent.RegisterRoutes(protected)
			h.Role.RegisterRoutes(protected)
			h.APIKey.RegisterRoutes(protected)
			h.Device.RegisterRoutes(protected)
		}
	}

	logger.Info("All routes initialized")
	return router
}

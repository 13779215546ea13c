package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/delivery/http/handler"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/ingestion"
	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/testutil"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/agent"
	"device-fleet-manager/internal/usecase/apikey"
	"device-fleet-manager/internal/usecase/device"
	"device-fleet-manager/internal/usecase/role"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDB struct{ err error }

func (f fakeDB) Health() error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		JWT:    config.JWTConfig{Secret: "router-secret", ExpiryMinutes: 60, HeaderPrefix: "Token"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Authorization", "X-API-KEY"},
			MaxAge:         600,
		},
	}
}

func newRouter(t *testing.T, db HealthChecker, rl *middleware.RateLimiter) (*gin.Engine, *testutil.Fixture) {
	t.Helper()

	cfg := testConfig()
	fx := testutil.NewFixture()
	store := fx.Store
	notifier := &testutil.Notifier{}

	accountSvc := account.NewService(store.Accounts(), store.ResetTokens(), store.Roles(), store.Agents(), store.Devices(), notifier, cfg)
	apiKeySvc := apikey.NewService(store.APIKeys(), nil)
	deviceSvc := device.NewService(store.Devices(), store.Accounts(), store.Agents(), store.DeviceLogs(), notifier, cfg.Device)

	router := SetupRoutes(cfg, Dependencies{
		DB:            db,
		Authenticator: accountSvc,
		APIKeys:       apiKeySvc,
		RateLimiter:   rl,
		Handlers: Handlers{
			Account: handler.NewAccountHandler(accountSvc),
			Agent:   handler.NewAgentHandler(agent.NewService(store.Agents(), store.Accounts(), store.Roles(), store.Devices(), notifier)),
			Role:    handler.NewRoleHandler(role.NewService(store.Roles())),
			APIKey:  handler.NewAPIKeyHandler(apiKeySvc),
			Device:  handler.NewDeviceHandler(deviceSvc, ingestion.NewHub()),
		},
	})
	return router, fx
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t, fakeDB{}, nil)
	w := get(r, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])

	r, _ = newRouter(t, fakeDB{err: errors.New("connection refused")}, nil)
	w = get(r, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newRouter(t, fakeDB{}, nil)
	_ = get(r, "/health", nil)

	w := get(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestMiddlewareChain(t *testing.T) {
	r, _ := newRouter(t, fakeDB{}, nil)

	header := http.Header{}
	header.Set("Origin", "https://console.example.com")
	w := get(r, "/health", header)

	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoleGuardsThroughRouter(t *testing.T) {
	r, fx := newRouter(t, fakeDB{}, nil)
	ag, _ := fx.Agent("Agency One")
	agentID := ag.ID
	officer := fx.Account(domainRole.AgentOfficer, &agentID)
	super := fx.Account(domainRole.Superuser, nil)

	bearer := func(id string) http.Header {
		a, err := fx.Store.Accounts().GetByEmail(t.Context(), id)
		require.NoError(t, err)
		token, _, err := utils.GenerateToken(a.ID, "router-secret", time.Hour)
		require.NoError(t, err)
		h := http.Header{}
		h.Set("Authorization", "Token "+token)
		return h
	}

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/users", nil).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/v1/users", bearer(officer.Email)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/users", bearer(super.Email)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/devices/mac/AA:BB/metadata", nil).Code)
}

func TestRateLimitThroughRouter(t *testing.T) {
	r, _ := newRouter(t, fakeDB{}, middleware.NewRateLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
	w := get(r, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

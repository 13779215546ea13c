package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/logger"
	"device-fleet-manager/internal/permission"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	accounts map[string]*domainAccount.Account
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*domainAccount.Account, error) {
	if a, ok := f.accounts[token]; ok {
		return a, nil
	}
	return nil, appErrors.ErrInvalidToken
}

func accountWithRole(name string, active bool) *domainAccount.Account {
	return &domainAccount.Account{
		ID:       uuid.New(),
		IsActive: active,
		Role:     &domainRole.Role{ID: uuid.New(), Name: name},
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newAuthRouter(auth Authenticator, guards ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	handlers := append([]gin.HandlerFunc{AuthMiddleware(auth, "Token")}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		caller := GetCaller(c)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.AccountID, "role": caller.RoleName})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r http.Handler, header, value string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	active := accountWithRole(domainRole.AgentManager, true)
	inactive := accountWithRole(domainRole.AgentManager, false)
	auth := &fakeAuthenticator{accounts: map[string]*domainAccount.Account{
		"good":     active,
		"inactive": inactive,
	}}
	r := newAuthRouter(auth)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong prefix", "Bearer good", http.StatusUnauthorized},
		{"no token", "Token", http.StatusUnauthorized},
		{"unknown token", "Token bad", http.StatusUnauthorized},
		{"inactive account", "Token inactive", http.StatusForbidden},
		{"valid", "Token good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, "Authorization", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				assert.False(t, decode(t, w).Success)
			}
		})
	}

	w := doRequest(r, "Authorization", "token good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), active.ID.String())
}

func TestOfficerOnSuperuserRouteIsForbidden(t *testing.T) {
	officer := accountWithRole(domainRole.AgentOfficer, true)
	super := accountWithRole(domainRole.Superuser, true)
	auth := &fakeAuthenticator{accounts: map[string]*domainAccount.Account{
		"officer": officer,
		"super":   super,
	}}
	r := newAuthRouter(auth, SuperuserOnly())

	w := doRequest(r, "Authorization", "Token officer")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.ErrForbidden.Message, decode(t, w).Error)

	w = doRequest(r, "Authorization", "Token super")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleMiddlewareWithoutCaller(t *testing.T) {
	r := gin.New()
	r.GET("/protected", RoleMiddleware(permission.StaffAndSuperuser), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doRequest(r, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeVerifier struct {
	key *domainAPIKey.APIKey
}

func (f *fakeVerifier) Verify(_ context.Context, plaintext string) (*domainAPIKey.APIKey, error) {
	if plaintext == "abcdefgh.secret" {
		return f.key, nil
	}
	return nil, domainAPIKey.ErrAPIKeyInvalid
}

func TestAPIKeyMiddleware(t *testing.T) {
	key := &domainAPIKey.APIKey{ID: uuid.New(), IsActive: true}
	r := gin.New()
	r.GET("/protected", APIKeyMiddleware(&fakeVerifier{key: key}), func(c *gin.Context) {
		v, _ := c.Get(APIKeyKey)
		c.JSON(http.StatusOK, gin.H{"id": v.(*domainAPIKey.APIKey).ID})
	})

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, APIKeyHeader, "nope").Code)

	w := doRequest(r, APIKeyHeader, "abcdefgh.secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), key.ID.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/protected", RateLimitMiddleware(NewRateLimiter(0.001, 1)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, doRequest(r, "", "").Code)
	w := doRequest(r, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, doRequest(r, APIKeyHeader, "abcdefgh.secret").Code)
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("a")
	rl.Allow("b")

	assert.Zero(t, rl.Prune(time.Now(), time.Minute))
	assert.Equal(t, 2, rl.Prune(time.Now().Add(2*time.Minute), time.Minute))
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := doRequest(r, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())

	for _, bad := range []string{strings.Repeat("x", 500), "has space", "tab\tid"} {
		w = doRequest(r, RequestIDHeader, bad)
		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err, bad)
	}
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		RequestLogger(c).Info("handled")
		c.Status(http.StatusNoContent)
	})

	doRequest(r, RequestIDHeader, "req-456")

	entries := logs.FilterMessage("handled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-456", entries[0].ContextMap()["request_id"])

	// Without the middleware the logger still works, tagged with an empty id.
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	RequestLogger(c).Info("bare")
	require.Len(t, logs.FilterMessage("bare").All(), 1)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(true))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(r, "", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/upload", RequestSizeLimitMiddleware(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"device-fleet-manager/internal/config"
	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainLog "device-fleet-manager/internal/domain/devicelog"
	domainEmail "device-fleet-manager/internal/domain/email"
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
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	fx       *testutil.Fixture
	notifier *testutil.Notifier
	hub      *ingestion.Hub

	agent     *domainAgent.Agent
	agentUser *domainAccount.Account
	officer   *domainAccount.Account
	super     *domainAccount.Account
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fx := testutil.NewFixture()
	notifier := &testutil.Notifier{}
	hub := ingestion.NewHub()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, ExpiryMinutes: 60, HeaderPrefix: "Token"},
		Email: config.EmailTemplateConfig{
			ResetPasswordURL:        "https://app.example.com/reset",
			ResetTokenExpiryMinutes: 60,
		},
		Device: config.DeviceConfig{
			ExternalRabbitMQURI: "amqp://devices@broker:5672/",
			APIBaseURI:          "https://api.example.com",
			SecretKey:           "device-secret",
		},
	}

	store := fx.Store
	accountSvc := account.NewService(store.Accounts(), store.ResetTokens(), store.Roles(), store.Agents(), store.Devices(), notifier, cfg)
	agentSvc := agent.NewService(store.Agents(), store.Accounts(), store.Roles(), store.Devices(), notifier)
	roleSvc := role.NewService(store.Roles())
	apiKeySvc := apikey.NewService(store.APIKeys(), nil)
	deviceSvc := device.NewService(store.Devices(), store.Accounts(), store.Agents(), store.DeviceLogs(), notifier, cfg.Device)

	accountHandler := NewAccountHandler(accountSvc)
	deviceHandler := NewDeviceHandler(deviceSvc, hub)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	v1 := r.Group("/api/v1")
	accountHandler.RegisterAuthRoutes(v1)

	devices := v1.Group("")
	devices.Use(middleware.APIKeyMiddleware(apiKeySvc))
	deviceHandler.RegisterDeviceRoutes(devices)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(accountSvc, cfg.JWT.HeaderPrefix))
	accountHandler.RegisterRoutes(protected)
	NewAgentHandler(agentSvc).RegisterRoutes(protected)
	NewRoleHandler(roleSvc).RegisterRoutes(protected)
	NewAPIKeyHandler(apiKeySvc).RegisterRoutes(protected)
	deviceHandler.RegisterRoutes(protected)

	ag, agentUser := fx.Agent("Agency One")
	agentID := ag.ID

	return &testServer{
		router:    r,
		fx:        fx,
		notifier:  notifier,
		hub:       hub,
		agent:     ag,
		agentUser: agentUser,
		officer:   fx.Account(domainRole.AgentOfficer, &agentID),
		super:     fx.Account(domainRole.Superuser, nil),
	}
}

func tokenFor(t *testing.T, a *domainAccount.Account) string {
	t.Helper()
	token, _, err := utils.GenerateToken(a.ID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, as *domainAccount.Account, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	header := http.Header{}
	if as != nil {
		header.Set("Authorization", "Token "+tokenFor(t, as))
	}
	return s.doWithHeader(t, method, path, header, body)
}

func (s *testServer) doWithHeader(t *testing.T, method, path string, header http.Header, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email":    s.agentUser.Email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login account.LoginResponse
	decodeData(t, env, &login)
	assert.Equal(t, "Agency One", login.AgentName)

	header := http.Header{}
	header.Set("Authorization", "Token "+login.Token)
	w, env = s.doWithHeader(t, http.MethodGet, "/api/v1/users/me", header, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me account.AccountResponse
	decodeData(t, env, &me)
	assert.Equal(t, s.agentUser.ID, me.ID)
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", nil, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", env.Error)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email":    s.agentUser.Email,
		"password": "wrong-password1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email":    s.officer.Email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tokenFor(t, s.agentUser))
	w, _ = s.doWithHeader(t, http.MethodGet, "/api/v1/users/me", header, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOfficerIsForbiddenOnSuperuserRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/users", "/api/v1/agents", "/api/v1/devices", "/api/v1/api-keys/all"} {
		w, _ := s.do(t, http.MethodGet, path, s.officer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w, _ := s.do(t, http.MethodGet, "/api/v1/users", s.super, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAgentAndProfile(t *testing.T) {
	s := newTestServer(t)

	body := map[string]interface{}{
		"name":  "Agency Two",
		"email": testutil.EmailAddress("agency"),
		"owner": map[string]string{
			"first_name": "Bola",
			"last_name":  "Ade",
			"email":      testutil.EmailAddress("owner"),
			"phone":      testutil.Phone(),
			"lasrra_id":  testutil.LasrraID(),
			"password":   "password123",
		},
	}
	w, env := s.do(t, http.MethodPost, "/api/v1/agents", s.super, body)
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var created agent.CreateAgentResponse
	decodeData(t, env, &created)
	assert.Equal(t, "Agency Two", created.Agent.Name)
	assert.Equal(t, domainRole.Agent, created.Owner.Role)

	w, _ = s.do(t, http.MethodPost, "/api/v1/agents", s.super, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/agents/"+s.agent.ID.String(), s.agentUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/agents/"+created.Agent.ID.String(), s.agentUser, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/agents/not-a-uuid", s.agentUser, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid agent ID", env.Error)
}

func TestEmployeeManagement(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/users/employees", s.agentUser, map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Obi",
		"email":      testutil.EmailAddress("ada"),
		"phone":      testutil.Phone(),
		"lasrra_id":  testutil.LasrraID(),
		"password":   "password123",
		"role_id":    s.fx.Roles[domainRole.AgentSupervisor],
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var created account.AccountResponse
	decodeData(t, env, &created)
	assert.False(t, created.IsActive)

	w, env = s.do(t, http.MethodPost, "/api/v1/users/"+created.ID.String()+"/activate", s.agentUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var activated account.AccountResponse
	decodeData(t, env, &activated)
	assert.True(t, activated.IsActive)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/employees", s.agentUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var employees []account.AccountResponse
	decodeData(t, env, &employees)
	assert.Len(t, employees, 1)

	w, _ = s.do(t, http.MethodPost, "/api/v1/users/"+created.ID.String()+"/superuser", s.agentUser, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+s.agentUser.ID.String()+"/superuser", s.super, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), s.super, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPasswordResetRoutes(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", nil, map[string]string{"email": s.agentUser.Email})
	require.Equal(t, http.StatusOK, w.Code)

	emails := s.notifier.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, domainEmail.TemplateResetPassword, emails[0].TemplateID)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/reset-password", nil, map[string]string{
		"token":            "unknown",
		"new_password":     "brandnew123",
		"confirm_password": "brandnew123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", nil, map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.notifier.Emails(), 1)
}

func TestRoleRoutes(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/roles", s.agentUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roles []role.RoleResponse
	decodeData(t, env, &roles)
	assert.Len(t, roles, len(domainRole.DefaultNames))

	w, _ = s.do(t, http.MethodPost, "/api/v1/roles", s.agentUser, map[string]string{"name": "auditor"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/roles", s.super, map[string]string{"name": "auditor"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created role.RoleResponse
	decodeData(t, env, &created)
	assert.Equal(t, "AUDITOR", created.Name)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/roles/"+s.fx.Roles[domainRole.Regular].String(), s.super, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/roles/"+created.ID.String(), s.super, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeviceRoutes(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/devices", s.agentUser, map[string]string{
		"name":   "Gate 1",
		"mac_id": "aa:bb:cc:dd:ee:01",
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var created device.DeviceResponse
	decodeData(t, env, &created)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", created.MacID)
	assert.False(t, created.IsActive)
	path := "/api/v1/devices/" + created.ID.String()

	w, _ = s.do(t, http.MethodPost, "/api/v1/devices", s.agentUser, map[string]string{
		"name":   "Gate 2",
		"mac_id": "AA:BB:CC:DD:EE:01",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, path+"/activate", s.agentUser, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, path+"/users", s.agentUser, map[string]string{"user_id": s.officer.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	var assigned device.DeviceResponse
	decodeData(t, env, &assigned)
	require.Len(t, assigned.AssignedUsers, 1)
	assert.Equal(t, s.officer.ID, assigned.AssignedUsers[0].ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/devices/assigned/"+s.officer.ID.String(), s.super, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []device.DeviceResponse
	decodeData(t, env, &list)
	assert.Len(t, list, 1)

	w, env = s.do(t, http.MethodGet, "/api/v1/devices/owned", s.agentUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &list)
	assert.Len(t, list, 1)

	w, _ = s.do(t, http.MethodDelete, path+"/users/"+s.officer.ID.String(), s.agentUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, stranger := s.fx.Agent("Agency Two")
	w, _ = s.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/devices/"+uuid.NewString(), s.agentUser, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, path+"/logs?limit=10", s.agentUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, path, s.agentUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (s *testServer) createKey(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/api-keys", s.agentUser, map[string]string{"name": "gate poller"})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var created apikey.CreateAPIKeyResponse
	decodeData(t, env, &created)
	require.NotEmpty(t, created.Key)
	return created.Key
}

func TestDeviceMetadataRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)
	d := s.fx.Device("Gate 1", "AA:BB", s.agentUser.ID, s.agent.ID, true)
	require.NoError(t, s.fx.Store.Devices().AddAssignment(t.Context(), d.ID, s.officer.ID))

	w, _ := s.do(t, http.MethodGet, "/api/v1/devices/mac/aa:bb/metadata", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	header := http.Header{}
	header.Set(middleware.APIKeyHeader, "bogus.key")
	w, _ = s.doWithHeader(t, http.MethodGet, "/api/v1/devices/mac/aa:bb/metadata", header, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	header.Set(middleware.APIKeyHeader, s.createKey(t))
	w, env := s.doWithHeader(t, http.MethodGet, "/api/v1/devices/mac/aa:bb/metadata", header, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	var cfg device.DeviceConfigResponse
	decodeData(t, env, &cfg)
	assert.Equal(t, d.ID, cfg.Config.DeviceID)
	require.Len(t, cfg.Config.Users, 2)
	assert.Equal(t, s.agentUser.ID, cfg.Config.Users[0].ID)

	w, _ = s.doWithHeader(t, http.MethodPut, "/api/v1/devices/mac/AA:BB/device_users/"+s.officer.ID.String(), header,
		map[string]string{"password": "devicepass1"})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := s.fx.Store.Accounts().GetByID(t.Context(), s.officer.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(stored.PasswordHashed, "devicepass1"))

	w, _ = s.doWithHeader(t, http.MethodPut, "/api/v1/devices/mac/AA:BB/device_users/"+s.super.ID.String(), header,
		map[string]string{"password": "devicepass1"})
	assert.NotEqual(t, http.StatusOK, w.Code)

	require.NoError(t, s.fx.Store.Devices().SetActive(t.Context(), d.ID, false))
	w, _ = s.doWithHeader(t, http.MethodGet, "/api/v1/devices/mac/AA:BB/metadata", header, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStreamLogs(t *testing.T) {
	s := newTestServer(t)
	d := s.fx.Device("Gate 1", "AA:BB", s.agentUser.ID, s.agent.ID, true)

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/devices/" + d.ID.String() + "/logs/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Token "+tokenFor(t, s.agentUser))
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Subscribers("AA:BB") == 1 }, time.Second, 10*time.Millisecond)

	deviceID := d.ID
	sent := s.hub.Broadcast(&domainLog.Log{
		ID:       uuid.New(),
		DeviceID: &deviceID,
		MacID:    "AA:BB",
		LogClass: "access",
		Level:    "info",
		LoggedAt: time.Now().UTC(),
	})
	assert.Equal(t, 1, sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var entry device.DeviceLogResponse
	require.NoError(t, conn.ReadJSON(&entry))
	assert.Equal(t, "AA:BB", entry.MacID)
	assert.Equal(t, "access", entry.LogClass)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.hub.Subscribers("AA:BB") == 0 }, 2*time.Second, 10*time.Millisecond)
}

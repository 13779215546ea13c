package agent

import (
	"context"
	"testing"

	"device-fleet-manager/internal/config"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/permission"
	"device-fleet-manager/internal/testutil"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/internal/usecase/device"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callerFor(t *testing.T, fx *testutil.Fixture, id uuid.UUID) *permission.Caller {
	t.Helper()
	a, err := fx.Store.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return testutil.Caller(a)
}

// An employee moved to another agency loses its device assignments.
func TestEmployeeTransferClearsAssignments(t *testing.T) {
	fx := testutil.NewFixture()
	notifier := &testutil.Notifier{}
	ctx := context.Background()

	agents := newService(fx, notifier)
	accounts := account.NewService(
		fx.Store.Accounts(), fx.Store.ResetTokens(), fx.Store.Roles(),
		fx.Store.Agents(), fx.Store.Devices(), notifier,
		&config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60}},
	)
	devices := device.NewService(
		fx.Store.Devices(), fx.Store.Accounts(), fx.Store.Agents(),
		fx.Store.DeviceLogs(), notifier, config.DeviceConfig{},
	)

	super := testutil.Caller(fx.Account(domainRole.Superuser, nil))

	first, err := agents.CreateAgent(ctx, super, &CreateAgentRequest{
		Name: "Agency One", Email: "one@example.com", Owner: ownerRequest(),
	})
	require.NoError(t, err)
	_, err = accounts.Activate(ctx, super, first.Owner.ID)
	require.NoError(t, err)
	owner := callerFor(t, fx, first.Owner.ID)

	employee, err := accounts.CreateEmployee(ctx, owner, &account.CreateEmployeeRequest{
		CreateAccountRequest: ownerRequest(),
		RoleID:               fx.Roles[domainRole.AgentOfficer],
	})
	require.NoError(t, err)
	_, err = accounts.Activate(ctx, owner, employee.ID)
	require.NoError(t, err)

	d, err := devices.CreateDevice(ctx, owner, &device.CreateDeviceRequest{Name: "Gate 1", MacID: "AA:BB"})
	require.NoError(t, err)
	_, err = devices.ActivateDevice(ctx, owner, d.ID)
	require.NoError(t, err)

	assigned, err := devices.AssignUser(ctx, owner, d.ID, employee.ID)
	require.NoError(t, err)
	require.Len(t, assigned.AssignedUsers, 1)
	assert.Equal(t, employee.ID, assigned.AssignedUsers[0].ID)

	second, err := agents.CreateAgent(ctx, super, &CreateAgentRequest{
		Name: "Agency Two", Email: "two@example.com", Owner: ownerRequest(),
	})
	require.NoError(t, err)

	notifier.Reset()
	moved, err := accounts.ChangeAgent(ctx, super, employee.ID, &account.ChangeAgentRequest{AgentUserID: second.Owner.ID})
	require.NoError(t, err)
	assert.Equal(t, second.Agent.ID, *moved.AgentID)

	after, err := devices.GetDevice(ctx, owner, d.ID)
	require.NoError(t, err)
	assert.Empty(t, after.AssignedUsers)
	assert.Equal(t, []string{"AA:BB"}, notifier.Devices())
}

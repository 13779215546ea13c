package permission

import (
	"testing"

	"device-fleet-manager/internal/domain/account"
	"device-fleet-manager/internal/domain/device"
	"device-fleet-manager/internal/domain/role"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestRequire(t *testing.T) {
	officer := &Caller{AccountID: uuid.New(), RoleName: role.AgentOfficer}
	superuser := &Caller{AccountID: uuid.New(), RoleName: role.Superuser}

	assert.ErrorIs(t, Require(nil, SuperuserOnly), appErrors.ErrAuthenticationRequired)
	assert.ErrorIs(t, Require(officer, SuperuserOnly), appErrors.ErrForbidden)
	assert.ErrorIs(t, Require(officer, StaffAndSuperuser), appErrors.ErrForbidden)
	assert.NoError(t, Require(superuser, SuperuserOnly))
	assert.NoError(t, Require(superuser, ManagerAndSuperuser))
}

func TestRequireOfficerOnSuperuserRouteIgnoresRelationship(t *testing.T) {
	agentID := uuid.New()
	officer := &Caller{AccountID: uuid.New(), RoleName: role.AgentOfficer, AgentID: ptr(agentID)}
	d := &device.Device{ID: uuid.New(), CreatorID: officer.AccountID, AgentID: agentID}

	assert.True(t, CanAccessDevice(officer, d))
	assert.ErrorIs(t, Require(officer, SuperuserOnly), appErrors.ErrForbidden)
}

func TestCanAccessDevice(t *testing.T) {
	agentID := uuid.New()
	creatorID := uuid.New()
	d := &device.Device{ID: uuid.New(), CreatorID: creatorID, AgentID: agentID}

	cases := []struct {
		name   string
		caller *Caller
		want   bool
	}{
		{"superuser", &Caller{AccountID: uuid.New(), RoleName: role.Superuser}, true},
		{"creator", &Caller{AccountID: creatorID, RoleName: role.AgentManager}, true},
		{"same agency", &Caller{AccountID: uuid.New(), RoleName: role.AgentSupervisor, AgentID: ptr(agentID)}, true},
		{"other agency", &Caller{AccountID: uuid.New(), RoleName: role.AgentManager, AgentID: ptr(uuid.New())}, false},
		{"no agency", &Caller{AccountID: uuid.New(), RoleName: role.AgentManager}, false},
		{"nil caller", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccessDevice(tc.caller, d))
		})
	}
}

func TestCanManageAccountUsesAgencyNotCreator(t *testing.T) {
	agentID := uuid.New()
	caller := &Caller{AccountID: uuid.New(), RoleName: role.AgentManager, AgentID: ptr(agentID)}

	sameAgency := &account.Account{ID: uuid.New(), AgentID: ptr(agentID)}
	createdElsewhere := &account.Account{ID: uuid.New(), AgentID: ptr(uuid.New()), CreatedByID: ptr(caller.AccountID)}
	noAgency := &account.Account{ID: uuid.New()}

	assert.True(t, CanManageAccount(caller, sameAgency))
	assert.False(t, CanManageAccount(caller, createdElsewhere))
	assert.False(t, CanManageAccount(caller, noAgency))
	assert.True(t, CanManageAccount(&Caller{RoleName: role.Superuser}, noAgency))
}

func TestCanViewAssignedDevices(t *testing.T) {
	creator := uuid.New()
	target := &account.Account{ID: uuid.New(), CreatedByID: ptr(creator)}

	assert.True(t, CanViewAssignedDevices(&Caller{AccountID: target.ID, RoleName: role.AgentOfficer}, target))
	assert.True(t, CanViewAssignedDevices(&Caller{AccountID: creator, RoleName: role.AgentManager}, target))
	assert.True(t, CanViewAssignedDevices(&Caller{AccountID: uuid.New(), RoleName: role.Superuser}, target))
	assert.False(t, CanViewAssignedDevices(&Caller{AccountID: uuid.New(), RoleName: role.AgentManager}, target))
}

func TestCheck(t *testing.T) {
	assert.ErrorIs(t, Check(nil, true), appErrors.ErrAuthenticationRequired)
	assert.ErrorIs(t, Check(&Caller{}, false), appErrors.ErrForbidden)
	assert.NoError(t, Check(&Caller{}, true))
}

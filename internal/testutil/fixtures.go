package testutil

import (
	"context"
	"fmt"
	"sync/atomic"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainDevice "device-fleet-manager/internal/domain/device"
	"device-fleet-manager/internal/permission"
	"device-fleet-manager/pkg/utils"

	"github.com/google/uuid"
)

var seq atomic.Int64

// LasrraID returns a distinct identifier that passes the version 1 checksum.
func LasrraID() string {
	return fmt.Sprintf("LA%03d0000000", seq.Add(1)%1000)
}

// Phone returns a distinct valid phone number.
func Phone() string {
	return fmt.Sprintf("+2348%09d", seq.Add(1))
}

// EmailAddress returns a distinct address under prefix.
func EmailAddress(prefix string) string {
	return fmt.Sprintf("%s%d@example.com", prefix, seq.Add(1))
}

// Fixture builds accounts, agents and devices directly in a Store.
type Fixture struct {
	Store *Store
	Roles map[string]uuid.UUID
}

func NewFixture() *Fixture {
	s := NewStore()
	return &Fixture{Store: s, Roles: s.SeedRoles()}
}

// Account creates an active account with the given role and password
// "password123".
func (f *Fixture) Account(roleName string, agentID *uuid.UUID) *domainAccount.Account {
	hash, err := utils.HashPassword("password123")
	if err != nil {
		panic(err)
	}
	a := &domainAccount.Account{
		FirstName:      "Test",
		LastName:       roleName,
		Email:          EmailAddress("user"),
		Phone:          Phone(),
		LasrraID:       LasrraID(),
		PasswordHashed: hash,
		IsActive:       true,
		RoleID:         f.Roles[roleName],
		AgentID:        agentID,
	}
	if err := f.Store.Accounts().Create(context.Background(), a); err != nil {
		panic(err)
	}
	loaded, err := f.Store.Accounts().GetByID(context.Background(), a.ID)
	if err != nil {
		panic(err)
	}
	return loaded
}

// Agent creates an agency and its owner account with role AGENT.
func (f *Fixture) Agent(name string) (*domainAgent.Agent, *domainAccount.Account) {
	ag := &domainAgent.Agent{
		Name:   name,
		Email:  EmailAddress("agent"),
		RoleID: f.Roles["AGENT"],
	}
	if err := f.Store.Agents().Create(context.Background(), ag); err != nil {
		panic(err)
	}
	id := ag.ID
	return ag, f.Account("AGENT", &id)
}

func (f *Fixture) Device(name, macID string, creator uuid.UUID, agentID uuid.UUID, active bool) *domainDevice.Device {
	d := &domainDevice.Device{
		Name:      name,
		MacID:     macID,
		IsActive:  active,
		CreatorID: creator,
		AgentID:   agentID,
	}
	if err := f.Store.Devices().Create(context.Background(), d); err != nil {
		panic(err)
	}
	return d
}

func Caller(a *domainAccount.Account) *permission.Caller {
	return permission.CallerFrom(a)
}

// Package testutil provides in-memory repositories and a recording notifier
// for use-case and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainAgent "device-fleet-manager/internal/domain/agent"
	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainLog "device-fleet-manager/internal/domain/devicelog"
	domainRole "device-fleet-manager/internal/domain/role"

	"github.com/google/uuid"
)

// Store is a shared in-memory database. Each repository view locks the same
// mutex, and reads return copies.
type Store struct {
	mu sync.Mutex

	roles       map[uuid.UUID]domainRole.Role
	agents      map[uuid.UUID]domainAgent.Agent
	accounts    map[uuid.UUID]domainAccount.Account
	history     []domainAccount.History
	tokens      map[uuid.UUID]domainAccount.PasswordResetToken
	devices     map[uuid.UUID]domainDevice.Device
	assignments map[uuid.UUID][]uuid.UUID // device -> accounts, insertion order
	apiKeys     map[uuid.UUID]domainAPIKey.APIKey
	logs        []domainLog.Log

	faults map[string]error
}

// Steps of a multi-write repository call that FailOn can break.
const (
	StepUpdateAgent       = "update_agent"
	StepRemoveAssignments = "remove_assignments"
	StepAddHistory        = "add_history"
)

// FailOn makes the next multi-write call that reaches step return err. Nothing
// that call would have written is kept.
func (s *Store) FailOn(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[step] = err
}

// fault consumes the error registered for step. Caller holds the lock.
func (s *Store) fault(step string) error {
	err, ok := s.faults[step]
	if !ok {
		return nil
	}
	delete(s.faults, step)
	return err
}

func NewStore() *Store {
	return &Store{
		roles:       make(map[uuid.UUID]domainRole.Role),
		agents:      make(map[uuid.UUID]domainAgent.Agent),
		accounts:    make(map[uuid.UUID]domainAccount.Account),
		tokens:      make(map[uuid.UUID]domainAccount.PasswordResetToken),
		devices:     make(map[uuid.UUID]domainDevice.Device),
		assignments: make(map[uuid.UUID][]uuid.UUID),
		apiKeys:     make(map[uuid.UUID]domainAPIKey.APIKey),
		faults:      make(map[string]error),
	}
}

// SeedRoles creates the default roles and returns their ids by name.
func (s *Store) SeedRoles() map[string]uuid.UUID {
	ids := make(map[string]uuid.UUID, len(domainRole.DefaultNames))
	repo := s.Roles()
	for _, name := range domainRole.DefaultNames {
		r := &domainRole.Role{Name: name}
		_ = repo.Create(context.Background(), r)
		ids[name] = r.ID
	}
	return ids
}

func (s *Store) Roles() domainRole.Repository                    { return &roleRepo{s} }
func (s *Store) Agents() domainAgent.Repository                  { return &agentRepo{s} }
func (s *Store) Accounts() domainAccount.Repository              { return &accountRepo{s} }
func (s *Store) ResetTokens() domainAccount.ResetTokenRepository { return &tokenRepo{s} }
func (s *Store) Devices() domainDevice.Repository                { return &deviceRepo{s} }
func (s *Store) APIKeys() domainAPIKey.Repository                { return &apiKeyRepo{s} }
func (s *Store) DeviceLogs() domainLog.Repository                { return &logRepo{s} }

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// roles

type roleRepo struct{ s *Store }

func (r *roleRepo) Create(_ context.Context, role *domainRole.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return domainRole.ErrRoleAlreadyExists
		}
	}
	newID(&role.ID)
	role.CreatedAt = time.Now()
	r.s.roles[role.ID] = *role
	return nil
}

func (r *roleRepo) GetByID(_ context.Context, id uuid.UUID) (*domainRole.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, domainRole.ErrRoleNotFound
	}
	return &role, nil
}

func (r *roleRepo) GetByName(_ context.Context, name string) (*domainRole.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			role := role
			return &role, nil
		}
	}
	return nil, domainRole.ErrRoleNotFound
}

func (r *roleRepo) List(_ context.Context) ([]*domainRole.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domainRole.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		role := role
		out = append(out, &role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *roleRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return domainRole.ErrRoleNotFound
	}
	for otherID, other := range r.s.roles {
		if otherID != id && other.Name == name {
			return domainRole.ErrRoleAlreadyExists
		}
	}
	role.Name = name
	r.s.roles[id] = role
	return nil
}

func (r *roleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return domainRole.ErrRoleNotFound
	}
	delete(r.s.roles, id)
	return nil
}

func (r *roleRepo) CountAccounts(_ context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.accounts {
		if a.RoleID == id {
			n++
		}
	}
	return n, nil
}

// agents

type agentRepo struct{ s *Store }

func (r *agentRepo) Create(_ context.Context, a *domainAgent.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.agents {
		if existing.Name == a.Name || existing.Email == a.Email {
			return domainAgent.ErrAgentAlreadyExists
		}
	}
	newID(&a.ID)
	a.CreatedAt = time.Now()
	r.s.agents[a.ID] = *a
	return nil
}

func (r *agentRepo) GetByID(_ context.Context, id uuid.UUID) (*domainAgent.Agent, error) {
	return r.find(func(a domainAgent.Agent) bool { return a.ID == id })
}

func (r *agentRepo) GetByName(_ context.Context, name string) (*domainAgent.Agent, error) {
	return r.find(func(a domainAgent.Agent) bool { return a.Name == name })
}

func (r *agentRepo) GetByEmail(_ context.Context, email string) (*domainAgent.Agent, error) {
	return r.find(func(a domainAgent.Agent) bool { return a.Email == email })
}

func (r *agentRepo) find(match func(domainAgent.Agent) bool) (*domainAgent.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.agents {
		if match(a) {
			a := a
			return &a, nil
		}
	}
	return nil, domainAgent.ErrAgentNotFound
}

func (r *agentRepo) List(_ context.Context) ([]*domainAgent.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domainAgent.Agent, 0, len(r.s.agents))
	for _, a := range r.s.agents {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

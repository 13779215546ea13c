package testutil

import (
	"context"
	"sort"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainRole "device-fleet-manager/internal/domain/role"

	"github.com/google/uuid"
)

type accountRepo struct{ s *Store }

// load returns a copy with Role populated. Caller holds the lock.
func (s *Store) load(a domainAccount.Account) *domainAccount.Account {
	if r, ok := s.roles[a.RoleID]; ok {
		role := r
		a.Role = &role
	} else {
		a.Role = nil
	}
	if a.AgentID != nil {
		id := *a.AgentID
		a.AgentID = &id
	}
	return &a
}

func (r *accountRepo) conflicts(a domainAccount.Account) bool {
	for id, other := range r.s.accounts {
		if id == a.ID {
			continue
		}
		if other.Email == a.Email || other.Phone == a.Phone || other.LasrraID == a.LasrraID {
			return true
		}
	}
	return false
}

func (r *accountRepo) Create(_ context.Context, a *domainAccount.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&a.ID)
	if r.conflicts(*a) {
		return domainAccount.ErrAccountAlreadyExists
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	stored.Role = nil
	r.s.accounts[a.ID] = stored
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*domainAccount.Account, error) {
	return r.find(func(a domainAccount.Account) bool { return a.ID == id })
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*domainAccount.Account, error) {
	return r.find(func(a domainAccount.Account) bool { return a.Email == email })
}

func (r *accountRepo) GetByPhone(_ context.Context, phone string) (*domainAccount.Account, error) {
	return r.find(func(a domainAccount.Account) bool { return a.Phone == phone })
}

func (r *accountRepo) GetByLasrraID(_ context.Context, lasrraID string) (*domainAccount.Account, error) {
	return r.find(func(a domainAccount.Account) bool { return a.LasrraID == lasrraID })
}

func (r *accountRepo) find(match func(domainAccount.Account) bool) (*domainAccount.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if match(a) {
			return r.s.load(a), nil
		}
	}
	return nil, domainAccount.ErrAccountNotFound
}

func (r *accountRepo) List(_ context.Context) ([]*domainAccount.Account, error) {
	return r.filter(func(domainAccount.Account) bool { return true }), nil
}

func (r *accountRepo) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*domainAccount.Account, error) {
	return r.filter(func(a domainAccount.Account) bool {
		return a.CreatedByID != nil && *a.CreatedByID == creatorID
	}), nil
}

func (r *accountRepo) ListByAgent(_ context.Context, agentID uuid.UUID) ([]*domainAccount.Account, error) {
	return r.filter(func(a domainAccount.Account) bool { return a.BelongsToAgent(agentID) }), nil
}

func (r *accountRepo) FindAgentOwner(_ context.Context, agentID uuid.UUID) (*domainAccount.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		loaded := r.s.load(a)
		if loaded.BelongsToAgent(agentID) && loaded.RoleName() == domainRole.Agent {
			return loaded, nil
		}
	}
	return nil, domainAccount.ErrAccountNotFound
}

func (r *accountRepo) filter(match func(domainAccount.Account) bool) []*domainAccount.Account {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domainAccount.Account, 0)
	for _, a := range r.s.accounts {
		if match(a) {
			out = append(out, r.s.load(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *accountRepo) modify(id uuid.UUID, fn func(a *domainAccount.Account)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return domainAccount.ErrAccountNotFound
	}
	fn(&a)
	if r.conflicts(a) {
		return domainAccount.ErrAccountAlreadyExists
	}
	a.UpdatedAt = time.Now()
	r.s.accounts[id] = a
	return nil
}

func (r *accountRepo) UpdateProfile(_ context.Context, id uuid.UUID, u domainAccount.ProfileUpdate) error {
	return r.modify(id, func(a *domainAccount.Account) {
		if u.FirstName != nil {
			a.FirstName = *u.FirstName
		}
		if u.LastName != nil {
			a.LastName = *u.LastName
		}
		if u.Email != nil {
			a.Email = *u.Email
		}
		if u.Phone != nil {
			a.Phone = *u.Phone
		}
		if u.Address != nil {
			a.Address = *u.Address
		}
	})
}

func (r *accountRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.modify(id, func(a *domainAccount.Account) { a.IsActive = active })
}

func (r *accountRepo) SetRole(_ context.Context, id, roleID uuid.UUID) error {
	return r.modify(id, func(a *domainAccount.Account) { a.RoleID = roleID })
}

// MoveToAgent stages every write and applies them only when no step fails.
func (r *accountRepo) MoveToAgent(_ context.Context, id, agentID uuid.UUID, entry *domainAccount.History) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domainAccount.ErrAccountNotFound
	}
	if err := r.s.fault(StepUpdateAgent); err != nil {
		return nil, err
	}
	a.AgentID = &agentID
	a.UpdatedAt = time.Now()

	if err := r.s.fault(StepRemoveAssignments); err != nil {
		return nil, err
	}
	remaining := make(map[uuid.UUID][]uuid.UUID)
	var macIDs []string
	for deviceID, accounts := range r.s.assignments {
		kept := without(accounts, id)
		if len(kept) == len(accounts) {
			continue
		}
		remaining[deviceID] = kept
		if d, ok := r.s.devices[deviceID]; ok {
			macIDs = append(macIDs, d.MacID)
		}
	}
	sort.Strings(macIDs)

	if err := r.s.fault(StepAddHistory); err != nil {
		return nil, err
	}
	newID(&entry.ID)
	entry.CreatedAt = a.UpdatedAt

	r.s.accounts[id] = a
	for deviceID, kept := range remaining {
		r.s.assignments[deviceID] = kept
	}
	r.s.history = append(r.s.history, *entry)
	return macIDs, nil
}

func (r *accountRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.modify(id, func(a *domainAccount.Account) { a.PasswordHashed = hash })
}

func (r *accountRepo) AddHistory(_ context.Context, entry *domainAccount.History) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&entry.ID)
	entry.CreatedAt = time.Now()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *accountRepo) ListHistory(_ context.Context, accountID uuid.UUID) ([]*domainAccount.History, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domainAccount.History
	for _, h := range r.s.history {
		if h.AccountID == accountID {
			h := h
			out = append(out, &h)
		}
	}
	return out, nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, t *domainAccount.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&t.ID)
	t.CreatedAt = time.Now()
	r.s.tokens[t.ID] = *t
	return nil
}

func (r *tokenRepo) GetByToken(_ context.Context, token string) (*domainAccount.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.Token == token {
			t := t
			return &t, nil
		}
	}
	return nil, domainAccount.ErrResetTokenUnknown
}

func (r *tokenRepo) Redeem(_ context.Context, tokenID, accountID uuid.UUID, hash string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenID]
	if !ok || t.UsedAt != nil {
		return domainAccount.ErrResetTokenUsed
	}
	a, ok := r.s.accounts[accountID]
	if !ok {
		return domainAccount.ErrAccountNotFound
	}
	t.UsedAt = &now
	r.s.tokens[tokenID] = t
	a.PasswordHashed = hash
	a.UpdatedAt = now
	r.s.accounts[accountID] = a
	return nil
}

func (r *tokenRepo) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(before) || (t.UsedAt != nil && t.UsedAt.Before(before)) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

package testutil

import (
	"context"
	"sort"
	"time"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	domainDevice "device-fleet-manager/internal/domain/device"
	domainLog "device-fleet-manager/internal/domain/devicelog"

	"github.com/google/uuid"
)

type deviceRepo struct{ s *Store }

// loadDevice copies d and attaches its assignees. Caller holds the lock.
func (s *Store) loadDevice(d domainDevice.Device) *domainDevice.Device {
	d.AssignedUsers = nil
	for _, accountID := range s.assignments[d.ID] {
		if a, ok := s.accounts[accountID]; ok {
			d.AssignedUsers = append(d.AssignedUsers, s.load(a))
		}
	}
	return &d
}

func (r *deviceRepo) conflicts(d domainDevice.Device) bool {
	for id, other := range r.s.devices {
		if id != d.ID && (other.Name == d.Name || other.MacID == d.MacID) {
			return true
		}
	}
	return false
}

func (r *deviceRepo) Create(_ context.Context, d *domainDevice.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&d.ID)
	if r.conflicts(*d) {
		return domainDevice.ErrDeviceAlreadyExists
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	stored := *d
	stored.AssignedUsers = nil
	r.s.devices[d.ID] = stored
	return nil
}

func (r *deviceRepo) GetByID(_ context.Context, id uuid.UUID) (*domainDevice.Device, error) {
	return r.find(func(d domainDevice.Device) bool { return d.ID == id })
}

func (r *deviceRepo) GetByMacID(_ context.Context, macID string) (*domainDevice.Device, error) {
	return r.find(func(d domainDevice.Device) bool { return d.MacID == macID })
}

func (r *deviceRepo) GetByName(_ context.Context, name string) (*domainDevice.Device, error) {
	return r.find(func(d domainDevice.Device) bool { return d.Name == name })
}

func (r *deviceRepo) find(match func(domainDevice.Device) bool) (*domainDevice.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if match(d) {
			return r.s.loadDevice(d), nil
		}
	}
	return nil, domainDevice.ErrDeviceNotFound
}

func (r *deviceRepo) List(_ context.Context) ([]*domainDevice.Device, error) {
	return r.filter(func(domainDevice.Device) bool { return true }), nil
}

func (r *deviceRepo) ListByAgent(_ context.Context, agentID uuid.UUID) ([]*domainDevice.Device, error) {
	return r.filter(func(d domainDevice.Device) bool { return d.AgentID == agentID }), nil
}

func (r *deviceRepo) ListOwned(_ context.Context, agentID *uuid.UUID, creatorID uuid.UUID) ([]*domainDevice.Device, error) {
	return r.filter(func(d domainDevice.Device) bool {
		return (agentID != nil && d.AgentID == *agentID) || d.CreatorID == creatorID
	}), nil
}

func (r *deviceRepo) ListAssignedTo(_ context.Context, accountID uuid.UUID) ([]*domainDevice.Device, error) {
	r.s.mu.Lock()
	assigned := make(map[uuid.UUID]bool)
	for deviceID, accounts := range r.s.assignments {
		for _, id := range accounts {
			if id == accountID {
				assigned[deviceID] = true
			}
		}
	}
	r.s.mu.Unlock()
	return r.filter(func(d domainDevice.Device) bool { return assigned[d.ID] }), nil
}

func (r *deviceRepo) filter(match func(domainDevice.Device) bool) []*domainDevice.Device {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domainDevice.Device, 0)
	for _, d := range r.s.devices {
		if match(d) {
			out = append(out, r.s.loadDevice(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *deviceRepo) modify(id uuid.UUID, fn func(d *domainDevice.Device)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[id]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	fn(&d)
	if r.conflicts(d) {
		return domainDevice.ErrDeviceAlreadyExists
	}
	d.UpdatedAt = time.Now()
	r.s.devices[id] = d
	return nil
}

func (r *deviceRepo) Update(_ context.Context, id uuid.UUID, u domainDevice.Update) error {
	return r.modify(id, func(d *domainDevice.Device) {
		if u.Name != nil {
			d.Name = *u.Name
		}
		if u.MacID != nil {
			d.MacID = *u.MacID
		}
	})
}

func (r *deviceRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.modify(id, func(d *domainDevice.Device) { d.IsActive = active })
}

func (r *deviceRepo) SetAgent(_ context.Context, id, agentID uuid.UUID) error {
	return r.modify(id, func(d *domainDevice.Device) { d.AgentID = agentID })
}

func (r *deviceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.devices[id]; !ok {
		return domainDevice.ErrDeviceNotFound
	}
	delete(r.s.devices, id)
	delete(r.s.assignments, id)
	return nil
}

func (r *deviceRepo) AddAssignment(_ context.Context, deviceID, accountID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.assignments[deviceID] {
		if id == accountID {
			return nil
		}
	}
	r.s.assignments[deviceID] = append(r.s.assignments[deviceID], accountID)
	return nil
}

func (r *deviceRepo) RemoveAssignment(_ context.Context, deviceID, accountID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assignments[deviceID] = without(r.s.assignments[deviceID], accountID)
	return nil
}

func without(ids []uuid.UUID, drop uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

type apiKeyRepo struct{ s *Store }

func (r *apiKeyRepo) Create(_ context.Context, k *domainAPIKey.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.apiKeys {
		if other.KeyPrefix == k.KeyPrefix {
			return domainAPIKey.ErrAPIKeyInvalid
		}
	}
	newID(&k.ID)
	k.CreatedAt = time.Now()
	r.s.apiKeys[k.ID] = *k
	return nil
}

func (r *apiKeyRepo) GetByID(_ context.Context, id uuid.UUID) (*domainAPIKey.APIKey, error) {
	return r.find(func(k domainAPIKey.APIKey) bool { return k.ID == id })
}

func (r *apiKeyRepo) GetByPrefix(_ context.Context, prefix string) (*domainAPIKey.APIKey, error) {
	return r.find(func(k domainAPIKey.APIKey) bool { return k.KeyPrefix == prefix })
}

func (r *apiKeyRepo) find(match func(domainAPIKey.APIKey) bool) (*domainAPIKey.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.apiKeys {
		if match(k) {
			k := k
			return &k, nil
		}
	}
	return nil, domainAPIKey.ErrAPIKeyNotFound
}

func (r *apiKeyRepo) List(_ context.Context) ([]*domainAPIKey.APIKey, error) {
	return r.filter(func(domainAPIKey.APIKey) bool { return true }), nil
}

func (r *apiKeyRepo) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*domainAPIKey.APIKey, error) {
	return r.filter(func(k domainAPIKey.APIKey) bool { return k.AccountID == accountID }), nil
}

func (r *apiKeyRepo) filter(match func(domainAPIKey.APIKey) bool) []*domainAPIKey.APIKey {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domainAPIKey.APIKey, 0)
	for _, k := range r.s.apiKeys {
		if match(k) {
			k := k
			out = append(out, &k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *apiKeyRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return domainAPIKey.ErrAPIKeyNotFound
	}
	k.IsActive = false
	r.s.apiKeys[id] = k
	return nil
}

func (r *apiKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.apiKeys[id]; ok {
		k.LastUsedAt = &at
		r.s.apiKeys[id] = k
	}
	return nil
}

type logRepo struct{ s *Store }

func (r *logRepo) BatchInsert(_ context.Context, logs []*domainLog.Log) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range logs {
		newID(&l.ID)
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now()
		}
		r.s.logs = append(r.s.logs, *l)
	}
	return nil
}

func (r *logRepo) ListByDevice(_ context.Context, deviceID uuid.UUID, macID string, limit int) ([]*domainLog.Log, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]*domainLog.Log, 0)
	for i := len(r.s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.s.logs[i]
		if (l.DeviceID != nil && *l.DeviceID == deviceID) || l.MacID == macID {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *logRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.logs[:0]
	var n int64
	for _, l := range r.s.logs {
		if l.LoggedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.s.logs = kept
	return n, nil
}

package apikey

import (
	"context"
	"sync"
	"testing"

	domainAPIKey "device-fleet-manager/internal/domain/apikey"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/testutil"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu   sync.Mutex
	keys map[string]*domainAPIKey.APIKey
}

func newMemoryCache() *memoryCache {
	return &memoryCache{keys: make(map[string]*domainAPIKey.APIKey)}
}

func (c *memoryCache) Get(_ context.Context, plaintext string) (*domainAPIKey.APIKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keys[plaintext]
	return k, ok
}

func (c *memoryCache) Set(_ context.Context, plaintext string, key *domainAPIKey.APIKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[plaintext] = key
}

func (c *memoryCache) Evict(_ context.Context, keyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for plaintext, k := range c.keys {
		if k.ID == keyID {
			delete(c.keys, plaintext)
		}
	}
}

func TestCreateAndVerify(t *testing.T) {
	fx := testutil.NewFixture()
	cache := newMemoryCache()
	svc := NewService(fx.Store.APIKeys(), cache)
	ctx := context.Background()
	_, owner := fx.Agent("Agency One")

	created, err := svc.Create(ctx, testutil.Caller(owner), &CreateAPIKeyRequest{Name: "gate poller"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Key)
	assert.True(t, created.IsActive)
	assert.Equal(t, owner.ID, created.UserID)

	key, err := svc.Verify(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, created.ID, key.ID)
	assert.NotNil(t, key.LastUsedAt)

	_, cached := cache.Get(ctx, created.Key)
	assert.True(t, cached)

	_, err = svc.Verify(ctx, created.Key+"x")
	assert.ErrorIs(t, err, domainAPIKey.ErrAPIKeyInvalid)

	_, err = svc.Verify(ctx, "garbage")
	require.ErrorIs(t, err, domainAPIKey.ErrAPIKeyInvalid)
	assert.Equal(t, appErrors.CodeAuthenticationRequired, appErrors.CodeOf(err))
}

func TestDeactivateEvictsAndRejects(t *testing.T) {
	fx := testutil.NewFixture()
	cache := newMemoryCache()
	svc := NewService(fx.Store.APIKeys(), cache)
	ctx := context.Background()
	_, owner := fx.Agent("Agency One")
	super := fx.Account(domainRole.Superuser, nil)

	created, err := svc.Create(ctx, testutil.Caller(owner), &CreateAPIKeyRequest{Name: "gate poller"})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, created.Key)
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, testutil.Caller(super), created.ID)
	assert.ErrorIs(t, err, domainAPIKey.ErrNotKeyOwner)

	resp, err := svc.Deactivate(ctx, testutil.Caller(owner), created.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	_, cached := cache.Get(ctx, created.Key)
	assert.False(t, cached)

	_, err = svc.Verify(ctx, created.Key)
	assert.ErrorIs(t, err, domainAPIKey.ErrAPIKeyInvalid)

	_, err = svc.Deactivate(ctx, testutil.Caller(owner), uuid.New())
	assert.ErrorIs(t, err, domainAPIKey.ErrAPIKeyNotFound)
}

func TestListings(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.APIKeys(), nil)
	ctx := context.Background()
	_, owner := fx.Agent("Agency One")
	_, other := fx.Agent("Agency Two")
	super := fx.Account(domainRole.Superuser, nil)

	_, err := svc.Create(ctx, testutil.Caller(owner), &CreateAPIKeyRequest{Name: "first"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, testutil.Caller(other), &CreateAPIKeyRequest{Name: "second"})
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, testutil.Caller(owner))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "first", mine[0].Name)

	_, err = svc.ListAll(ctx, testutil.Caller(owner))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	all, err := svc.ListAll(ctx, testutil.Caller(super))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateRequiresManagerTier(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.APIKeys(), nil)
	agent, _ := fx.Agent("Agency One")
	agentID := agent.ID
	officer := fx.Account(domainRole.AgentOfficer, &agentID)

	_, err := svc.Create(context.Background(), testutil.Caller(officer), &CreateAPIKeyRequest{Name: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

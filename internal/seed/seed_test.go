package seed

import (
	"context"
	"testing"

	"device-fleet-manager/internal/config"
	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/testutil"
	"device-fleet-manager/internal/usecase/role"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConfig() config.SeedConfig {
	return config.SeedConfig{
		FirstSuperuserEmail:     "Admin@Example.com",
		FirstSuperuserPassword:  "changeme123",
		FirstSuperuserFirstName: "Site",
		FirstSuperuserLastName:  "Admin",
		FirstSuperuserPhone:     testutil.Phone(),
		FirstSuperuserLasrraID:  testutil.LasrraID(),
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := testutil.NewStore()
	ctx := context.Background()
	roles := role.NewService(store.Roles())
	cfg := seedConfig()

	require.NoError(t, Run(ctx, roles, store.Roles(), store.Accounts(), cfg))
	require.NoError(t, Run(ctx, roles, store.Roles(), store.Accounts(), cfg))

	all, err := store.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "admin@example.com", all[0].Email)
	assert.True(t, all[0].IsActive)
	assert.Equal(t, domainRole.Superuser, all[0].RoleName())

	defaults, err := store.Roles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, defaults, len(domainRole.DefaultNames))
}

func TestRunWithoutSuperuser(t *testing.T) {
	store := testutil.NewStore()
	ctx := context.Background()

	require.NoError(t, Run(ctx, role.NewService(store.Roles()), store.Roles(), store.Accounts(), config.SeedConfig{}))

	all, err := store.Accounts().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunRejectsWeakPassword(t *testing.T) {
	store := testutil.NewStore()
	cfg := seedConfig()
	cfg.FirstSuperuserPassword = "short"

	err := Run(context.Background(), role.NewService(store.Roles()), store.Roles(), store.Accounts(), cfg)
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))
}

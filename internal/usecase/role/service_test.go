package role

import (
	"context"
	"testing"

	domainRole "device-fleet-manager/internal/domain/role"
	"device-fleet-manager/internal/testutil"
	appErrors "device-fleet-manager/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaults(t *testing.T) {
	store := testutil.NewStore()
	svc := NewService(store.Roles())
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefaults(ctx))
	require.NoError(t, svc.EnsureDefaults(ctx))

	roles, err := store.Roles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, len(domainRole.DefaultNames))
}

func TestCustomRoleLifecycle(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.Roles())
	ctx := context.Background()
	super := testutil.Caller(fx.Account(domainRole.Superuser, nil))

	created, err := svc.Create(ctx, super, &RoleRequest{Name: " auditor "})
	require.NoError(t, err)
	assert.Equal(t, "AUDITOR", created.Name)
	assert.False(t, created.IsDefault)

	_, err = svc.Create(ctx, super, &RoleRequest{Name: "Auditor"})
	assert.ErrorIs(t, err, domainRole.ErrRoleAlreadyExists)

	updated, err := svc.Update(ctx, super, created.ID, &RoleRequest{Name: "inspector"})
	require.NoError(t, err)
	assert.Equal(t, "INSPECTOR", updated.Name)

	require.NoError(t, svc.Delete(ctx, super, created.ID))
	err = svc.Delete(ctx, super, created.ID)
	assert.ErrorIs(t, err, domainRole.ErrRoleNotFound)
}

func TestDefaultRolesAreProtected(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.Roles())
	ctx := context.Background()
	super := testutil.Caller(fx.Account(domainRole.Superuser, nil))

	_, err := svc.Update(ctx, super, fx.Roles[domainRole.AgentOfficer], &RoleRequest{Name: "officer"})
	require.ErrorIs(t, err, domainRole.ErrDefaultRoleProtected)
	assert.Equal(t, appErrors.CodeBadRequest, appErrors.CodeOf(err))

	err = svc.Delete(ctx, super, fx.Roles[domainRole.Regular])
	assert.ErrorIs(t, err, domainRole.ErrDefaultRoleProtected)
}

func TestDeleteRoleInUse(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.Roles())
	ctx := context.Background()
	super := testutil.Caller(fx.Account(domainRole.Superuser, nil))

	created, err := svc.Create(ctx, super, &RoleRequest{Name: "auditor"})
	require.NoError(t, err)
	fx.Roles["AUDITOR"] = created.ID
	fx.Account("AUDITOR", nil)

	err = svc.Delete(ctx, super, created.ID)
	assert.ErrorIs(t, err, domainRole.ErrRoleInUse)
}

func TestRoleManagementRequiresSuperuser(t *testing.T) {
	fx := testutil.NewFixture()
	svc := NewService(fx.Store.Roles())
	ctx := context.Background()
	_, owner := fx.Agent("Agency One")

	_, err := svc.Create(ctx, testutil.Caller(owner), &RoleRequest{Name: "auditor"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	roles, err := svc.List(ctx, testutil.Caller(owner))
	require.NoError(t, err)
	assert.Len(t, roles, len(domainRole.DefaultNames))

	_, err = svc.List(ctx, nil)
	assert.ErrorIs(t, err, appErrors.ErrAuthenticationRequired)
}

package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cignalottu/authcore/identity"
	"github.com/cignalottu/authcore/password"
	"github.com/cignalottu/authcore/store/memory"
)

func TestRunCreatesThenSkips(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	hasher, err := password.NewBcrypt(4)
	require.NoError(t, err)

	res, err := Run(ctx, store, hasher, zerolog.Nop(), DevUsers)
	require.NoError(t, err)
	assert.Len(t, res.Created, len(DevUsers))
	assert.Empty(t, res.Skipped)

	admin, err := store.FindByEmail(ctx, "admin@cignalottu.it")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, admin.Role)
	assert.Equal(t, identity.ProviderLocal, admin.Provider)
	require.NotNil(t, admin.PasswordHash)
	ok, err := hasher.Verify("admin123", *admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = Run(ctx, store, hasher, zerolog.Nop(), DevUsers)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Skipped, len(DevUsers))
	assert.Equal(t, len(DevUsers), store.Len())
}

func TestRunLeavesExistingUserUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.Save(ctx, &identity.Identity{Email: "barber@test.it", FirstName: "Other", Role: identity.RoleCustomer, Provider: identity.ProviderGoogle})
	require.NoError(t, err)

	hasher, err := password.NewBcrypt(4)
	require.NoError(t, err)
	res, err := Run(ctx, store, hasher, zerolog.Nop(), DevUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"barber@test.it"}, res.Skipped)

	barber, err := store.FindByEmail(ctx, "barber@test.it")
	require.NoError(t, err)
	assert.Equal(t, "Other", barber.FirstName)
	assert.Nil(t, barber.PasswordHash)
}

// Package storetest is a conformance suite for identity.Store implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cignalottu/authcore/identity"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) identity.Store

// Run exercises the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("insert assigns id and timestamps", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, localIdentity("mario@test.it"))
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
		assert.False(t, saved.UpdatedAt.IsZero())

		found, err := s.FindByEmail(ctx, "mario@test.it")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, found.ID)
		assert.Equal(t, "Mario", found.FirstName)
		assert.Equal(t, identity.RoleCustomer, found.Role)
		assert.Equal(t, identity.ProviderLocal, found.Provider)
		require.NotNil(t, found.PasswordHash)
		assert.Equal(t, "hash", *found.PasswordHash)
		assert.Nil(t, found.ProviderID)
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, localIdentity("foo@bar.com"))
		require.NoError(t, err)

		exists, err := s.ExistsByEmail(ctx, "Foo@Bar.COM")
		require.NoError(t, err)
		assert.True(t, exists)

		found, err := s.FindByEmail(ctx, " FOO@bar.com ")
		require.NoError(t, err)
		assert.Equal(t, "foo@bar.com", found.Email)
	})

	t.Run("missing identity", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		exists, err := s.ExistsByEmail(ctx, "nobody@test.it")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.FindByEmail(ctx, "nobody@test.it")
		assert.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, localIdentity("dup@test.it"))
		require.NoError(t, err)
		_, err = s.Save(ctx, localIdentity("DUP@test.it"))
		assert.ErrorIs(t, err, identity.ErrDuplicateEmail)
	})

	t.Run("update keeps id and created at", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, localIdentity("merge@test.it"))
		require.NoError(t, err)

		sub := "google-sub-1"
		saved.Provider = identity.ProviderGoogle
		saved.ProviderID = &sub
		updated, err := s.Save(ctx, saved)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, updated.ID)
		assert.WithinDuration(t, saved.CreatedAt, updated.CreatedAt, time.Second)

		found, err := s.FindByEmail(ctx, "merge@test.it")
		require.NoError(t, err)
		assert.Equal(t, identity.ProviderGoogle, found.Provider)
		require.NotNil(t, found.ProviderID)
		assert.Equal(t, sub, *found.ProviderID)
		require.NotNil(t, found.PasswordHash)
		assert.Equal(t, "Mario", found.FirstName)
	})

	t.Run("concurrent inserts admit one", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, localIdentity("race@test.it"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, identity.ErrDuplicateEmail):
					conflicts++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)
	})
}

func localIdentity(email string) *identity.Identity {
	hash := "hash"
	return &identity.Identity{
		Email:        identity.NormalizeEmail(email),
		PasswordHash: &hash,
		FirstName:    "Mario",
		LastName:     "Rossi",
		Role:         identity.RoleCustomer,
		Provider:     identity.ProviderLocal,
	}
}

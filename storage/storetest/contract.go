package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/ilumina-session/storage"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises the behaviour every Store implementation must
// share. The store must start empty.
func RunStoreContract(t *testing.T, store storage.Store) {
	ctx := context.Background()
	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Load Empty", func(t *testing.T) {
		_, err := store.Load(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		rec := storage.Record{Token: "T1", RefreshToken: "R1", ExpiresAt: expiresAt}
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "T1", loaded.Token)
		require.Equal(t, "R1", loaded.RefreshToken)
		require.True(t, expiresAt.Equal(loaded.ExpiresAt))
		require.True(t, loaded.Complete())
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		rec := storage.Record{Token: "T2", RefreshToken: "R2", ExpiresAt: expiresAt.Add(time.Hour)}
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "T2", loaded.Token)
		require.Equal(t, "R2", loaded.RefreshToken)
	})

	t.Run("Remove Is Idempotent", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx))
		require.NoError(t, store.Remove(ctx))

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchantdash/go-session-client/storage"
	"github.com/merchantdash/go-session-client/storage/sqlitestore"
)

func openStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissingKey(t *testing.T) {
	store := openStore(t)
	_, err := store.Get("absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetGetOverwriteDelete(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Set("token", "first"))
	require.NoError(t, store.Set("token", "second"))

	value, err := store.Get("token")
	require.NoError(t, err)
	require.Equal(t, "second", value)

	require.NoError(t, store.Delete("token"))
	_, err = store.Get("token")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("token", "persisted"))
	require.NoError(t, store.Close())

	reopened, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get("token")
	require.NoError(t, err)
	require.Equal(t, "persisted", value)
}

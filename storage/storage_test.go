package storage_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/merchantdash/go-session-client/storage"
	"github.com/merchantdash/go-session-client/storage/memstore"
)

// brokenBackend fails every operation, standing in for disabled storage or
// an exhausted quota.
type brokenBackend struct{}

func (brokenBackend) Get(string) (string, error) { return "", errors.New("storage disabled") }
func (brokenBackend) Set(string, string) error   { return errors.New("quota exceeded") }
func (brokenBackend) Delete(string) error        { return errors.New("storage disabled") }

func newAdapter(t *testing.T) (*storage.Adapter, *memstore.Store, *memstore.Store) {
	t.Helper()
	durable := memstore.New()
	ephemeral := memstore.New()
	adapter, err := storage.NewAdapter(durable, ephemeral, zerolog.Nop())
	require.NoError(t, err)
	return adapter, durable, ephemeral
}

func TestNewAdapterRequiresBothTiers(t *testing.T) {
	_, err := storage.NewAdapter(nil, memstore.New(), zerolog.Nop())
	require.Error(t, err)

	_, err = storage.NewAdapter(memstore.New(), nil, zerolog.Nop())
	require.Error(t, err)
}

func TestReadAnyPrefersDurable(t *testing.T) {
	adapter, durable, ephemeral := newAdapter(t)
	require.NoError(t, durable.Set("token", "durable-value"))
	require.NoError(t, ephemeral.Set("token", "ephemeral-value"))

	value, tier, ok := adapter.ReadAny("token")
	require.True(t, ok)
	require.Equal(t, storage.TierDurable, tier)
	require.Equal(t, "durable-value", value)
}

func TestReadAnyFallsBackToEphemeral(t *testing.T) {
	adapter, _, ephemeral := newAdapter(t)
	require.NoError(t, ephemeral.Set("token", "ephemeral-value"))

	value, tier, ok := adapter.ReadAny("token")
	require.True(t, ok)
	require.Equal(t, storage.TierEphemeral, tier)
	require.Equal(t, "ephemeral-value", value)
}

func TestReadDegradesToAbsentOnBackendFailure(t *testing.T) {
	adapter, err := storage.NewAdapter(brokenBackend{}, memstore.New(), zerolog.Nop())
	require.NoError(t, err)

	_, ok := adapter.Read(storage.TierDurable, "token")
	require.False(t, ok)

	_, _, ok = adapter.ReadAny("token")
	require.False(t, ok)
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	adapter, err := storage.NewAdapter(brokenBackend{}, memstore.New(), zerolog.Nop())
	require.NoError(t, err)

	writeErr := adapter.Write(storage.TierDurable, "token", "value")
	require.Error(t, writeErr)
	require.ErrorIs(t, writeErr, storage.ErrPersistence)
}

func TestRemoveNeverFailsOutward(t *testing.T) {
	adapter, err := storage.NewAdapter(brokenBackend{}, brokenBackend{}, zerolog.Nop())
	require.NoError(t, err)

	// Must not panic or surface anything.
	adapter.Remove(storage.TierDurable, "token")
	adapter.RemoveAll("token")
}

func TestRemoveAllClearsBothTiers(t *testing.T) {
	adapter, durable, ephemeral := newAdapter(t)
	require.NoError(t, durable.Set("token", "a"))
	require.NoError(t, ephemeral.Set("token", "b"))

	adapter.RemoveAll("token")

	_, _, ok := adapter.ReadAny("token")
	require.False(t, ok)
	require.Zero(t, durable.Len())
	require.Zero(t, ephemeral.Len())
}

func TestTierOther(t *testing.T) {
	require.Equal(t, storage.TierEphemeral, storage.TierDurable.Other())
	require.Equal(t, storage.TierDurable, storage.TierEphemeral.Other())
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/timer"
)

func setupTestKV(t *testing.T) *SQLiteKV {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "focusd_test.db")
	store, err := OpenSQLiteKV(dbPath)
	require.NoError(t, err, "open sqlite kv")
	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "close sqlite kv")
	})
	return store
}

func TestSQLiteKVGetMissingKey(t *testing.T) {
	store := setupTestKV(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKVSetGetRemove(t *testing.T) {
	store := setupTestKV(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyLanguage, "en"))
	value, err := store.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "en", value)

	require.NoError(t, store.Set(ctx, KeyLanguage, "ru"))
	value, err = store.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "ru", value, "set must overwrite")

	require.NoError(t, store.Remove(ctx, KeyLanguage))
	_, err = store.Get(ctx, KeyLanguage)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKVRemoveMissingKeyIsNoOp(t *testing.T) {
	store := setupTestKV(t)
	assert.NoError(t, store.Remove(context.Background(), "missing"))
}

func TestTimerStateStoreRoundTrip(t *testing.T) {
	store := setupTestKV(t)
	states := NewTimerStateStore(store)
	ctx := context.Background()

	loaded, err := states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, timer.InitialState(), loaded, "empty store loads the initial state")

	running := timer.Start(timer.InitialState(), 1_000)
	require.NoError(t, states.Save(ctx, running))

	loaded, err = states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, running, loaded)
}

func TestTimerStateStoreSurvivesCorruptBlob(t *testing.T) {
	store := setupTestKV(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyTimerState, "{{{not json"))

	loaded, err := NewTimerStateStore(store).Load(ctx)
	require.NoError(t, err, "corrupt blob must not fail the load")
	assert.Equal(t, timer.InitialState(), loaded)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/database/testutil"
	"github.com/charlesng35/chatrelay/internal/models"
)

func newTestStore(t *testing.T) *DatabaseStore {
	t.Helper()
	return NewDatabaseStore(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "presence:alice", []byte("conn-1"), time.Minute))

	value, ok, err := store.Get(ctx, "presence:alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("conn-1"), value)

	require.NoError(t, store.Set(ctx, "presence:alice", []byte("conn-2"), time.Minute))
	value, ok, err = store.Get(ctx, "presence:alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("conn-2"), value)

	require.NoError(t, store.Delete(ctx, "presence:alice", "presence:missing"))
	_, ok, err = store.Get(ctx, "presence:alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiredEntriesAreMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.db.Create(&models.CacheEntry{
		Key:       "presence:bob",
		Value:     []byte("conn-9"),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}).Error)

	_, ok, err := store.Get(ctx, "presence:bob")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}).Error)
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("z"), 0))

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, store.db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "joins", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "joins", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestDatabaseStoreIncrementUsesFixedWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	window := 300 * time.Millisecond

	_, firstTTL, err := store.IncrementWithTTL(ctx, "ws:10.0.0.1", window)
	require.NoError(t, err)

	var max int64
	for i := 0; i < 7; i++ {
		time.Sleep(100 * time.Millisecond)
		count, ttl, err := store.IncrementWithTTL(ctx, "ws:10.0.0.1", window)
		require.NoError(t, err)
		require.LessOrEqual(t, ttl, firstTTL)
		if count > max {
			max = count
		}
	}
	require.LessOrEqual(t, max, int64(4))
}

func TestDatabaseStoreIncrementKeepsExpiryInsideWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.IncrementWithTTL(ctx, "rooms:alice", time.Minute)
	require.NoError(t, err)

	var before models.CacheEntry
	require.NoError(t, store.db.Take(&before, "key = ?", "rooms:alice").Error)

	time.Sleep(20 * time.Millisecond)
	count, ttl, err := store.IncrementWithTTL(ctx, "rooms:alice", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Less(t, ttl, time.Minute)

	var after models.CacheEntry
	require.NoError(t, store.db.Take(&after, "key = ?", "rooms:alice").Error)
	require.True(t, before.ExpiresAt.Equal(after.ExpiresAt))
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	require.Error(t, store.Set(context.Background(), "k", nil, 0))
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}

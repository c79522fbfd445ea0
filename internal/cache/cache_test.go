package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*redisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return newRedisCache(rdb, "test:rt:"), mr
}

func TestSetGet_RoundTrip(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	ctx := context.Background()

	entry := &RefreshEntry{UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second).UTC()}
	require.NoError(t, c.Set(ctx, "h1", entry))

	got, ok, err := c.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.UserID, got.UserID)
	require.False(t, got.Revoked)
	require.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	require.True(t, mr.Exists("test:rt:h1"))
	require.Greater(t, mr.TTL("test:rt:h1"), 59*time.Minute)
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)

	got, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestSet_ExpiredEntrySkipped(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)

	require.NoError(t, c.Set(context.Background(), "old", &RefreshEntry{UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}))
	require.False(t, mr.Exists("test:rt:old"))
}

func TestMarkRevoked_KeepsTTL(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "h1", &RefreshEntry{UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, c.MarkRevoked(ctx, "h1"))

	got, ok, err := c.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Revoked)
	require.Greater(t, mr.TTL("test:rt:h1"), time.Duration(0))
}

func TestMarkRevoked_MissingKeyNotCreated(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)

	require.NoError(t, c.MarkRevoked(context.Background(), "ghost"))
	require.False(t, mr.Exists("test:rt:ghost"))
}

func TestGet_CorruptedEntry(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	mr.HSet("test:rt:bad", "uid", "not-a-uuid", "rev", "0", "exp", "1")

	_, _, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
}

func TestNewRedisCache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	rc, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	require.Equal(t, defaultPrefix, rc.(*redisCache).prefix)
	require.NoError(t, rc.Close())

	_, err = NewRedisCache(context.Background(), "://bad", "")
	require.Error(t, err)
}

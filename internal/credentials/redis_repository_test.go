package credentials

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_UpsertGet(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:credential:")

	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, "sess-1", "A", "R", time.Hour))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "A", got.AccessToken)
	require.Equal(t, "R", got.RefreshToken)
	require.WithinDuration(t, time.Now().UTC().Add(time.Hour), got.ExpiresAt, 5*time.Second)

	// absent session
	got2, err := repo.Get(ctx, "sess-2")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_UpsertReplaces(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:credential:")

	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, "sess-1", "A", "R", time.Second))
	require.NoError(t, repo.Upsert(ctx, "sess-1", "A2", "R", time.Hour))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "A2", got.AccessToken)
	require.Equal(t, "R", got.RefreshToken)
}

func TestRedisRepository_RecordOutlivesAccessExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:credential:")

	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, "sess-1", "A", "R", time.Second))

	// the record must survive access-token expiry; the refresh token is
	// what mints the replacement
	m.FastForward(time.Minute)
	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "R", got.RefreshToken)
	require.True(t, time.Now().UTC().After(got.ExpiresAt))
}

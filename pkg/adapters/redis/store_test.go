package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/bugjar/pkg/adapters/redis"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr:     mr.Addr(),
		Protocol: 2,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)
	ports.RunRepositoryContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithPrefix("team-a:"))
	ctx := context.Background()

	snap := &domain.Snapshot{Breakpoints: []domain.Breakpoint{domain.NewBreakpoint("app.py", 10)}}
	require.NoError(t, store.Save(ctx, "s1", snap))

	assert.True(t, mr.Exists("team-a:breakpoints:s1"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"breakpoints:s1"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	snap := &domain.Snapshot{
		Breakpoints: []domain.Breakpoint{{File: "app.py", Line: 10, Enabled: true}},
	}
	require.NoError(t, store.Save(ctx, sessionID, snap))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Key expiry is driven by miniredis time, index pruning by wall time.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

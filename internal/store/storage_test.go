package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

func testStorage(t *testing.T, s domain.Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrKeyNotFound))

	values := map[string]domain.Term{
		"count": domain.Num(3),
		"name":  domain.Str("alice"),
		"items": domain.NewList(domain.Num(1), domain.Atom("x")),
		"goal":  domain.MustParseLiteral(`move(1, "north")[source(self)]`),
	}
	for k, v := range values {
		require.NoError(t, s.Put(ctx, k, v))
	}
	for k, v := range values {
		got, err := s.Get(ctx, k)
		require.NoError(t, err, k)
		assert.True(t, domain.Equal(v, got), "%s: got %s want %s", k, got, v)
	}

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "goal", "items", "name"}, keys)

	require.NoError(t, s.Put(ctx, "count", domain.Num(4)))
	got, err := s.Get(ctx, "count")
	require.NoError(t, err)
	assert.True(t, domain.Equal(domain.Num(4), got))

	ok, err := s.Exists(ctx, "name")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Remove(ctx, "name")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Remove(ctx, "name")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, s.Clear(ctx, "count"))
	ok, err = s.Exists(ctx, "count")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage())
}

func TestMemoryFactory_IsolatesAgents(t *testing.T) {
	ctx := context.Background()
	f := MemoryFactory()
	a, b := f("a"), f("b")

	require.NoError(t, a.Put(ctx, "k", domain.Num(1)))
	ok, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	testStorage(t, NewRedisStorage(client, "agent-1"))
}

func TestRedisStorage_IsolatesAgents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	f := RedisFactory(client)
	require.NoError(t, f("a").Put(ctx, "k", domain.Str("v")))
	require.NoError(t, f("b").Clear(ctx))

	got, err := f("a").Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, domain.Equal(domain.Str("v"), got))
	assert.True(t, mr.Exists(redisKeyPrefix+"a"))
	assert.False(t, mr.Exists(redisKeyPrefix+"b"))
}

func TestRedisStorage_RejectsOpaqueConstants(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStorage(client, "agent-1")
	err = s.Put(context.Background(), "ch", domain.Const(make(chan int)))
	assert.True(t, errors.Is(err, domain.ErrNotEncodable))
}

func TestPostgresStorage(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, EnsureSchema(ctx, pool))

	s := NewPostgresStorage(pool, "store-test")
	require.NoError(t, s.Clear(ctx))
	testStorage(t, s)
}

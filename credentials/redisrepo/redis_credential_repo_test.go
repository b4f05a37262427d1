package redisrepo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-catalog-link/credentials"
	"github.com/jrsteele09/go-catalog-link/credentials/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memoryClient answers Get/Set/Del from a map with the reply types go-redis returns.
type memoryClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
	lock   sync.Mutex
}

func newMemoryClient() *memoryClient {
	return &memoryClient{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *memoryClient) Get(_ context.Context, key string) *redis.StringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value type"))
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestKey(t *testing.T) {
	require.Equal(t, "catalog_credential:user-1", redisrepo.Key("user-1"))
}

func TestRedisCredentialRepo_WithClient(t *testing.T) {
	client := newMemoryClient()
	repo := redisrepo.NewRedisCredentialRepo(client)
	ctx := context.Background()

	_, err := repo.Get(ctx, "user-1")
	require.ErrorIs(t, err, credentials.ErrNotFound)

	linkedAt := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, credentials.AccessCredential{
		UserID: "user-1", AccessToken: "tok-1", AccessTokenSecret: "sec-1", LinkedAt: linkedAt,
	}))
	require.Contains(t, client.values, redisrepo.Key("user-1"))
	require.Zero(t, client.ttls[redisrepo.Key("user-1")], "credentials never expire")

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-1", got.AccessToken)
	require.Equal(t, "sec-1", got.AccessTokenSecret)
	require.True(t, linkedAt.Equal(got.LinkedAt))

	require.NoError(t, repo.Upsert(ctx, credentials.AccessCredential{
		UserID: "user-1", AccessToken: "tok-2", AccessTokenSecret: "sec-2", LinkedAt: linkedAt,
	}))
	got, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-2", got.AccessToken)

	require.NoError(t, repo.Delete(ctx, "user-1"))
	_, err = repo.Get(ctx, "user-1")
	require.ErrorIs(t, err, credentials.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "user-1"), "deleting a missing credential is not an error")
}

func TestRedisCredentialRepo_Errors(t *testing.T) {
	client := newMemoryClient()
	repo := redisrepo.NewRedisCredentialRepo(client)
	ctx := context.Background()

	require.Error(t, repo.Upsert(ctx, credentials.AccessCredential{AccessToken: "tok"}))

	client.values[redisrepo.Key("user-1")] = "{not json"
	_, err := repo.Get(ctx, "user-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, credentials.ErrNotFound)

	down := errors.New("connection refused")
	client.err = down
	_, err = repo.Get(ctx, "user-1")
	require.ErrorIs(t, err, down)
	require.ErrorIs(t, repo.Upsert(ctx, credentials.AccessCredential{UserID: "user-1"}), down)
	require.ErrorIs(t, repo.Delete(ctx, "user-1"), down)
}

// Integration check against a live server; skipped when nothing answers on
// localhost:6379.
func TestRedisCredentialRepo_RoundTrip(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	repo := redisrepo.NewRedisCredentialRepo(client)
	userID := "test-user-" + time.Now().Format("150405.000000")
	defer func() { _ = repo.Delete(ctx, userID) }()

	_, err := repo.Get(ctx, userID)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	linkedAt := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, credentials.AccessCredential{
		UserID: userID, AccessToken: "tok", AccessTokenSecret: "sec", LinkedAt: linkedAt,
	}))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "tok", got.AccessToken)
	require.Equal(t, "sec", got.AccessTokenSecret)
	require.True(t, linkedAt.Equal(got.LinkedAt))

	require.NoError(t, repo.Delete(ctx, userID))
	_, err = repo.Get(ctx, userID)
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-catalog-link/credentials"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catalog_credential:"

var _ credentials.Repo = (*RedisCredentialRepo)(nil)

// Client is the subset of redis.UniversalClient the repo uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ Client = (redis.UniversalClient)(nil)

// RedisCredentialRepo stores one JSON document per user. Keys carry no TTL; a
// credential lives until it is overwritten or deleted.
type RedisCredentialRepo struct {
	client Client
}

func NewRedisCredentialRepo(client Client) *RedisCredentialRepo {
	return &RedisCredentialRepo{client: client}
}

func Key(userID string) string {
	return keyPrefix + userID
}

func (r *RedisCredentialRepo) Get(ctx context.Context, userID string) (*credentials.AccessCredential, error) {
	data, err := r.client.Get(ctx, Key(userID)).Bytes()
	if err == redis.Nil {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var credential credentials.AccessCredential
	if err := json.Unmarshal(data, &credential); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &credential, nil
}

func (r *RedisCredentialRepo) Upsert(ctx context.Context, credential credentials.AccessCredential) error {
	if credential.UserID == "" {
		return fmt.Errorf("credential user id is required")
	}

	data, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := r.client.Set(ctx, Key(credential.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepo) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

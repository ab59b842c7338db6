package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

const redisKeyPrefix = "agentspeak:storage:"

// RedisStorage keeps an agent's scratchpad in one Redis hash with
// JSON-encoded terms.
type RedisStorage struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStorage(client redis.UniversalClient, agentID string) *RedisStorage {
	return &RedisStorage{client: client, key: redisKeyPrefix + agentID}
}

// RedisFactory opens per-agent hashes on a shared client.
func RedisFactory(client redis.UniversalClient) Factory {
	return func(agentID string) domain.Storage { return NewRedisStorage(client, agentID) }
}

func (s *RedisStorage) Get(ctx context.Context, key string) (domain.Term, error) {
	data, err := s.client.HGet(ctx, s.key, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return domain.UnmarshalTerm(data)
}

func (s *RedisStorage) Put(ctx context.Context, key string, value domain.Term) error {
	data, err := domain.MarshalTerm(value)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key, key, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisStorage) Remove(ctx context.Context, key string) (bool, error) {
	n, err := s.client.HDel(ctx, s.key, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis hdel: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.key, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists: %w", err)
	}
	return ok, nil
}

func (s *RedisStorage) Clear(ctx context.Context, keys ...string) error {
	var err error
	if len(keys) == 0 {
		err = s.client.Del(ctx, s.key).Err()
	} else {
		err = s.client.HDel(ctx, s.key, keys...).Err()
	}
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hkeys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisPrimaryStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisPrimaryStore stores payloads as plain Redis strings under
// keyPrefix+key and relies on EXPIRE for TTL.
func NewRedisPrimaryStore(client redis.Cmdable, keyPrefix string) PrimaryStore {
	return &redisPrimaryStore{client: client, keyPrefix: keyPrefix}
}

func (s *redisPrimaryStore) key(k string) string {
	return s.keyPrefix + k
}

func (s *redisPrimaryStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *redisPrimaryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *redisPrimaryStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

const expiryHeaderLen = 8

// MemoryPrimaryStore is an in-process PrimaryStore for local development and
// single-instance deployments. Each entry carries its own expiry in an 8-byte
// header because bigcache only knows one global life window; entries also
// disappear once that window elapses, whichever comes first.
type MemoryPrimaryStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewMemoryPrimaryStore creates a bigcache-backed store. lifeWindow should be
// at least the longest TTL callers use.
func NewMemoryPrimaryStore(ctx context.Context, lifeWindow time.Duration) (*MemoryPrimaryStore, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.CleanWindow = time.Minute
	cfg.Verbose = false
	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &MemoryPrimaryStore{cache: cache, now: time.Now}, nil
}

func (s *MemoryPrimaryStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(entry) < expiryHeaderLen {
		return "", false, fmt.Errorf("corrupt entry for %q", key)
	}

	expiresAt := int64(binary.BigEndian.Uint64(entry[:expiryHeaderLen]))
	if expiresAt > 0 && s.now().UnixNano() >= expiresAt {
		_ = s.cache.Delete(key)
		return "", false, nil
	}
	return string(entry[expiryHeaderLen:]), true, nil
}

func (s *MemoryPrimaryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	entry := make([]byte, expiryHeaderLen+len(value))
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	binary.BigEndian.PutUint64(entry[:expiryHeaderLen], uint64(expiresAt))
	copy(entry[expiryHeaderLen:], value)
	return s.cache.Set(key, entry)
}

func (s *MemoryPrimaryStore) Delete(_ context.Context, key string) error {
	err := s.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *MemoryPrimaryStore) Close() error {
	return s.cache.Close()
}

package repository

import (
	"context"
	"sync"
	"time"
)

type memRecord struct {
	value     string
	expiresAt time.Time
}

// MemoryReplicaStore keeps replica rows in a map. Expired rows stay in the map
// until PurgeExpired or an overwrite removes them, matching the lazy deletion
// of the SQL store.
type MemoryReplicaStore struct {
	mu      sync.RWMutex
	records map[string]memRecord
	now     func() time.Time
}

func NewMemoryReplicaStore() *MemoryReplicaStore {
	return &MemoryReplicaStore{
		records: make(map[string]memRecord),
		now:     time.Now,
	}
}

func (s *MemoryReplicaStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok || !rec.expiresAt.After(s.now()) {
		return "", false, nil
	}
	return rec.value, true, nil
}

func (s *MemoryReplicaStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = memRecord{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryReplicaStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryReplicaStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]Record, 0, len(s.records))
	for k, rec := range s.records {
		if rec.expiresAt.After(now) {
			out = append(out, Record{Key: k, Value: rec.value})
		}
	}
	return out, nil
}

func (s *MemoryReplicaStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, rec := range s.records {
		if !rec.expiresAt.After(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"exnotify/payloadhub/internal/config"
	"exnotify/payloadhub/internal/repository"
)

var errInjected = errors.New("injected backend failure")

// flakyStore wraps the in-memory replica with switchable failures, an
// optional delay that ignores context cancellation, and call counters.
type flakyStore struct {
	*repository.MemoryReplicaStore

	mu         sync.Mutex
	failGet    bool
	failPut    bool
	failDelete bool
	failList   bool
	delay      time.Duration
	puts       int
	lastTTL    time.Duration
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryReplicaStore: repository.NewMemoryReplicaStore()}
}

func (s *flakyStore) fail(all bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet, s.failPut, s.failDelete, s.failList = all, all, all, all
}

func (s *flakyStore) set(fn func(*flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *flakyStore) snapshot() (puts int, lastTTL time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts, s.lastTTL
}

func (s *flakyStore) wait() {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.wait()
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", false, errInjected
	}
	return s.MemoryReplicaStore.Get(ctx, key)
}

func (s *flakyStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.wait()
	s.mu.Lock()
	s.puts++
	s.lastTTL = ttl
	fail := s.failPut
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.MemoryReplicaStore.Put(ctx, key, value, ttl)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDelete
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.MemoryReplicaStore.Delete(ctx, key)
}

func (s *flakyStore) List(ctx context.Context) ([]repository.Record, error) {
	s.mu.Lock()
	fail := s.failList
	s.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return s.MemoryReplicaStore.List(ctx)
}

func testConfig() config.StorageConfig {
	cfg := config.DefaultStorageConfig()
	cfg.PrimaryTimeoutMs = 200
	cfg.ReplicaTimeoutMs = 200
	cfg.EnableDebugLogs = true
	return cfg
}

func newTestStorage(t *testing.T, cfg config.StorageConfig) (*HybridStorage, *flakyStore, *flakyStore) {
	t.Helper()
	primary, replica := newFlakyStore(), newFlakyStore()
	h, err := NewHybridStorage(primary, replica, cfg, zaptest.NewLogger(t), NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(h.Wait)
	return h, primary, replica
}

func TestHybridStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestStorage(t, testConfig())

	require.NoError(t, h.Put(ctx, "k1", "v1"))
	val, found := h.Get(ctx, "k1")
	assert.True(t, found)
	assert.Equal(t, "v1", val)
}

func TestHybridStorage_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestStorage(t, testConfig())

	require.NoError(t, h.Put(ctx, "k", "v"))
	require.NoError(t, h.Put(ctx, "k", "v"))

	val, found := h.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)
}

func TestHybridStorage_GetMissing(t *testing.T) {
	h, _, _ := newTestStorage(t, testConfig())

	val, found := h.Get(context.Background(), "nonexistent")
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestHybridStorage_GetFallsBackOnPrimaryError(t *testing.T) {
	ctx := context.Background()
	h, primary, replica := newTestStorage(t, testConfig())

	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "k", "from-replica", time.Minute))
	primary.set(func(s *flakyStore) { s.failGet = true })

	val, found := h.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "from-replica", val)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.fallbacks.WithLabelValues("get")))
}

func TestHybridStorage_GetFallsBackOnPrimaryMiss(t *testing.T) {
	ctx := context.Background()
	h, _, replica := newTestStorage(t, testConfig())

	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "k", "only-in-replica", time.Minute))

	val, found := h.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "only-in-replica", val)
}

func TestHybridStorage_GetWithoutFallback(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.EnableFallback = false
	h, primary, replica := newTestStorage(t, cfg)

	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "k", "v", time.Minute))

	_, found := h.Get(ctx, "k")
	assert.False(t, found, "miss must not consult replica")

	primary.set(func(s *flakyStore) { s.failGet = true })
	_, found = h.Get(ctx, "k")
	assert.False(t, found, "error must not consult replica")
}

func TestHybridStorage_PutFallsBackOnPrimaryError(t *testing.T) {
	ctx := context.Background()
	h, primary, replica := newTestStorage(t, testConfig())

	primary.set(func(s *flakyStore) { s.failPut = true })
	require.NoError(t, h.Put(ctx, "k2", "v2"))

	val, found, err := replica.MemoryReplicaStore.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", val)

	// primary never got the value, so reads come from the replica
	val, ok := h.Get(ctx, "k2")
	assert.True(t, ok)
	assert.Equal(t, "v2", val)

	primary.set(func(s *flakyStore) { s.failGet = true })
	val, ok = h.Get(ctx, "k2")
	assert.True(t, ok)
	assert.Equal(t, "v2", val)
}

func TestHybridStorage_TotalFailure(t *testing.T) {
	ctx := context.Background()
	h, primary, replica := newTestStorage(t, testConfig())
	primary.fail(true)
	replica.fail(true)

	err := h.Put(ctx, "k3", "v3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	val, found := h.Get(ctx, "k3")
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestHybridStorage_PutWithoutFallback(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.EnableFallback = false
	h, primary, replica := newTestStorage(t, cfg)
	primary.set(func(s *flakyStore) { s.failPut = true })

	err := h.Put(ctx, "k", "v")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	h.Wait()
	puts, _ := replica.snapshot()
	assert.Zero(t, puts)
}

func TestHybridStorage_DualWrite(t *testing.T) {
	ctx := context.Background()
	h, _, replica := newTestStorage(t, testConfig())

	require.NoError(t, h.Put(ctx, "k", "v"))
	h.Wait()

	val, found, err := replica.MemoryReplicaStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)
}

func TestHybridStorage_DualWriteDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.EnableDualWrite = false
	h, _, replica := newTestStorage(t, cfg)

	require.NoError(t, h.Put(ctx, "k", "v"))
	h.Wait()

	_, found, err := replica.MemoryReplicaStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHybridStorage_DualWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	h, _, replica := newTestStorage(t, testConfig())
	replica.set(func(s *flakyStore) { s.failPut = true })

	assert.NoError(t, h.Put(ctx, "k", "v"))
	h.Wait()

	puts, _ := replica.snapshot()
	assert.Equal(t, 1, puts)
}

func TestHybridStorage_DualWriteDoesNotBlockCaller(t *testing.T) {
	cfg := testConfig()
	cfg.ReplicaTimeoutMs = 2000
	h, _, replica := newTestStorage(t, cfg)
	replica.set(func(s *flakyStore) { s.delay = 300 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, h.Put(ctx, "k", "v"))
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	// the request ending must not abort the background copy
	cancel()
	h.Wait()

	val, found, err := replica.MemoryReplicaStore.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)
}

func TestHybridStorage_PrimaryTimeoutFallsBack(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.PrimaryTimeoutMs = 20
	h, primary, replica := newTestStorage(t, cfg)

	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "slow", "v", time.Minute))
	primary.set(func(s *flakyStore) { s.delay = 500 * time.Millisecond })

	start := time.Now()
	val, found := h.Get(ctx, "slow")
	assert.Less(t, time.Since(start), 400*time.Millisecond, "get must not wait for the abandoned call")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	require.NoError(t, h.Put(ctx, "slow-put", "w"))
	val, found, err := replica.MemoryReplicaStore.Get(ctx, "slow-put")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "w", val)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.operations.WithLabelValues(backendPrimary, "get", outcomeTimeout)))
}

func TestHybridStorage_TTL(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DefaultTTLSeconds = 120
	h, primary, _ := newTestStorage(t, cfg)

	require.NoError(t, h.Put(ctx, "a", "1"))
	_, ttl := primary.snapshot()
	assert.Equal(t, 120*time.Second, ttl)

	require.NoError(t, h.Put(ctx, "b", "2", WithTTL(time.Hour)))
	_, ttl = primary.snapshot()
	assert.Equal(t, time.Hour, ttl)

	require.NoError(t, h.Put(ctx, "c", "3", WithTTL(0)))
	_, ttl = primary.snapshot()
	assert.Equal(t, 120*time.Second, ttl)
}

func TestHybridStorage_Delete(t *testing.T) {
	ctx := context.Background()
	h, primary, replica := newTestStorage(t, testConfig())

	require.NoError(t, h.Put(ctx, "k", "v"))
	h.Wait()

	primary.set(func(s *flakyStore) { s.failDelete = true })
	h.Delete(ctx, "k")

	_, found, err := replica.MemoryReplicaStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "healthy replica is still cleaned up")

	replica.fail(true)
	primary.fail(true)
	h.Delete(ctx, "k") // must not panic or block
}

func TestHybridStorage_List(t *testing.T) {
	ctx := context.Background()
	h, _, replica := newTestStorage(t, testConfig())

	require.NoError(t, h.Put(ctx, "a", "1"))
	require.NoError(t, h.Put(ctx, "b", "2"))
	h.Wait()

	recs := h.List(ctx)
	assert.ElementsMatch(t, []repository.Record{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, recs)

	replica.set(func(s *flakyStore) { s.failList = true })
	recs = h.List(ctx)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestHybridStorage_NoReplica(t *testing.T) {
	ctx := context.Background()
	primary := newFlakyStore()
	h, err := NewHybridStorage(primary, nil, testConfig(), zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	require.NoError(t, h.Put(ctx, "k", "v"))
	val, found := h.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	assert.Empty(t, h.List(ctx))
	h.Delete(ctx, "k")

	_, err = h.PurgeExpired(ctx)
	assert.ErrorIs(t, err, ErrNoReplica)

	primary.set(func(s *flakyStore) { s.failPut = true })
	assert.ErrorIs(t, h.Put(ctx, "k2", "v2"), ErrStorageUnavailable)
}

func TestHybridStorage_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	h, _, replica := newTestStorage(t, testConfig())

	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "gone", "x", -time.Second))
	require.NoError(t, replica.MemoryReplicaStore.Put(ctx, "live", "y", time.Minute))

	n, err := h.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewHybridStorage_Validation(t *testing.T) {
	_, err := NewHybridStorage(nil, nil, testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNilPrimary)
	assert.ErrorIs(t, err, config.ErrInvalidStorageConfig)

	cfg := testConfig()
	cfg.PrimaryTimeoutMs = 0
	_, err = NewHybridStorage(newFlakyStore(), nil, cfg, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidStorageConfig)

	cfg = testConfig()
	cfg.DefaultTTLSeconds = -5
	_, err = NewHybridStorage(newFlakyStore(), nil, cfg, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidStorageConfig)
}

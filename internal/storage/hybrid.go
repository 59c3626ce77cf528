// Package storage routes payload reads and writes across a fast primary store
// and a durable replica store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"exnotify/payloadhub/internal/config"
	"exnotify/payloadhub/internal/repository"
)

const (
	backendPrimary = "primary"
	backendReplica = "replica"
)

type putOptions struct {
	ttl time.Duration
}

// PutOption adjusts a single Put call.
type PutOption func(*putOptions)

// WithTTL overrides the configured default TTL. Non-positive values keep the default.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *putOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// HybridStorage presents one Get/Put/Delete/List contract over a primary and
// a replica store. It keeps no state between calls apart from tracking
// detached replica writes so they can be drained on shutdown.
//
// Get never fails: a miss and "every backend is down" both come back as
// found=false. Put fails only when no backend accepted the write. Delete and
// List are best effort.
type HybridStorage struct {
	primary repository.PrimaryStore
	replica repository.ReplicaStore
	cfg     config.StorageConfig
	logger  *zap.Logger
	// trace receives per-decision logs; it is a no-op unless EnableDebugLogs.
	trace   *zap.Logger
	metrics *Metrics

	background sync.WaitGroup
}

// NewHybridStorage validates cfg and wires the two backends. replica may be
// nil, in which case every replica path behaves as a failed backend.
func NewHybridStorage(
	primary repository.PrimaryStore,
	replica repository.ReplicaStore,
	cfg config.StorageConfig,
	logger *zap.Logger,
	metrics *Metrics,
) (*HybridStorage, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidStorageConfig, ErrNilPrimary)
	}
	if err := cfg.ValidatePolicy(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("storage")

	trace := zap.NewNop()
	if cfg.EnableDebugLogs {
		trace = logger
	}

	return &HybridStorage{
		primary: primary,
		replica: replica,
		cfg:     cfg,
		logger:  logger,
		trace:   trace,
		metrics: metrics,
	}, nil
}

type lookup struct {
	value string
	found bool
}

func (h *HybridStorage) getFrom(ctx context.Context, backend string, store repository.PrimaryStore, timeout time.Duration, key string) (lookup, error) {
	start := time.Now()
	res, err := callWithTimeout(ctx, timeout, backend+" get", func(ctx context.Context) (lookup, error) {
		v, ok, err := store.Get(ctx, key)
		return lookup{value: v, found: ok}, err
	})
	switch {
	case err != nil:
		h.metrics.observe(backend, "get", outcomeOf(err), start)
		return lookup{}, fmt.Errorf("%w: %s get: %w", ErrBackendUnavailable, backend, err)
	case res.found:
		h.metrics.observe(backend, "get", outcomeHit, start)
	default:
		h.metrics.observe(backend, "get", outcomeMiss, start)
	}
	return res, nil
}

func (h *HybridStorage) putTo(ctx context.Context, backend string, store repository.PrimaryStore, timeout time.Duration, key, value string, ttl time.Duration) error {
	start := time.Now()
	_, err := callWithTimeout(ctx, timeout, backend+" put", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, store.Put(ctx, key, value, ttl)
	})
	if err != nil {
		h.metrics.observe(backend, "put", outcomeOf(err), start)
		return fmt.Errorf("%w: %s put: %w", ErrBackendUnavailable, backend, err)
	}
	h.metrics.observe(backend, "put", outcomeOK, start)
	return nil
}

func (h *HybridStorage) deleteFrom(ctx context.Context, backend string, store repository.PrimaryStore, timeout time.Duration, key string) error {
	start := time.Now()
	_, err := callWithTimeout(ctx, timeout, backend+" delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, store.Delete(ctx, key)
	})
	if err != nil {
		h.metrics.observe(backend, "delete", outcomeOf(err), start)
		return fmt.Errorf("%w: %s delete: %w", ErrBackendUnavailable, backend, err)
	}
	h.metrics.observe(backend, "delete", outcomeOK, start)
	return nil
}

// Get returns the payload stored under key. The primary is asked first; on a
// miss or failure the replica is asked when fallback is enabled.
func (h *HybridStorage) Get(ctx context.Context, key string) (string, bool) {
	res, err := h.getFrom(ctx, backendPrimary, h.primary, h.cfg.PrimaryTimeout(), key)
	if err == nil && res.found {
		h.trace.Info("primary hit", zap.String("key", key))
		return res.value, true
	}
	if err != nil {
		h.logger.Warn("primary get failed", zap.String("key", key), zap.Error(err))
	} else {
		h.trace.Info("primary miss", zap.String("key", key))
	}

	if !h.cfg.EnableFallback {
		return "", false
	}
	if h.replica == nil {
		h.trace.Info("fallback skipped, no replica", zap.String("key", key))
		return "", false
	}

	res, err = h.getFrom(ctx, backendReplica, h.replica, h.cfg.ReplicaTimeout(), key)
	if err != nil {
		h.logger.Warn("replica get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if res.found {
		h.metrics.fallback("get")
		h.trace.Info("replica hit", zap.String("key", key))
	} else {
		h.trace.Info("replica miss", zap.String("key", key))
	}
	return res.value, res.found
}

// Put writes value under key. A primary success is enough; with dual write
// enabled the replica copy is written in the background and only logged. On
// primary failure the replica becomes the sole write path when fallback is
// enabled. ErrStorageUnavailable is returned when nothing accepted the write.
func (h *HybridStorage) Put(ctx context.Context, key, value string, opts ...PutOption) error {
	o := putOptions{ttl: h.cfg.DefaultTTL()}
	for _, opt := range opts {
		opt(&o)
	}

	primaryErr := h.putTo(ctx, backendPrimary, h.primary, h.cfg.PrimaryTimeout(), key, value, o.ttl)
	if primaryErr == nil {
		h.trace.Info("primary put ok", zap.String("key", key), zap.Duration("ttl", o.ttl))
		if h.cfg.EnableDualWrite && h.replica != nil {
			h.dualWrite(ctx, key, value, o.ttl)
		}
		return nil
	}

	h.logger.Warn("primary put failed", zap.String("key", key), zap.Error(primaryErr))
	if !h.cfg.EnableFallback {
		return fmt.Errorf("%w: fallback disabled: %v", ErrStorageUnavailable, primaryErr)
	}
	if h.replica == nil {
		return fmt.Errorf("%w: no replica configured: %v", ErrStorageUnavailable, primaryErr)
	}

	if err := h.putTo(ctx, backendReplica, h.replica, h.cfg.ReplicaTimeout(), key, value, o.ttl); err != nil {
		h.logger.Error("replica put failed after primary failure", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: primary: %v; replica: %v", ErrStorageUnavailable, primaryErr, err)
	}
	h.metrics.fallback("put")
	h.trace.Info("replica put ok after primary failure", zap.String("key", key))
	return nil
}

// dualWrite copies a successful primary write to the replica without holding
// up the caller. The write outlives the caller's context cancellation but not
// the replica timeout.
func (h *HybridStorage) dualWrite(ctx context.Context, key, value string, ttl time.Duration) {
	bg := context.WithoutCancel(ctx)
	h.detach("dual write", func() {
		if err := h.putTo(bg, backendReplica, h.replica, h.cfg.ReplicaTimeout(), key, value, ttl); err != nil {
			h.logger.Warn("dual write to replica failed", zap.String("key", key), zap.Error(err))
			return
		}
		h.trace.Info("dual write to replica ok", zap.String("key", key))
	})
}

func (h *HybridStorage) detach(task string, fn func()) {
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("background storage task panicked", zap.String("task", task), zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

// Delete removes key from both backends concurrently. Failures are logged and
// never returned.
func (h *HybridStorage) Delete(ctx context.Context, key string) {
	var g errgroup.Group
	g.Go(func() error {
		if err := h.deleteFrom(ctx, backendPrimary, h.primary, h.cfg.PrimaryTimeout(), key); err != nil {
			h.logger.Warn("primary delete failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	})
	if h.replica != nil {
		g.Go(func() error {
			if err := h.deleteFrom(ctx, backendReplica, h.replica, h.cfg.ReplicaTimeout(), key); err != nil {
				h.logger.Warn("replica delete failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	h.trace.Info("delete done", zap.String("key", key))
}

// List enumerates live records from the replica. The primary cannot list, so
// a missing or failing replica yields an empty slice.
func (h *HybridStorage) List(ctx context.Context) []repository.Record {
	if h.replica == nil {
		h.trace.Info("list skipped, no replica")
		return []repository.Record{}
	}

	start := time.Now()
	recs, err := callWithTimeout(ctx, h.cfg.ReplicaTimeout(), "replica list", h.replica.List)
	if err != nil {
		h.metrics.observe(backendReplica, "list", outcomeOf(err), start)
		h.logger.Warn("replica list failed", zap.Error(err))
		return []repository.Record{}
	}
	h.metrics.observe(backendReplica, "list", outcomeOK, start)
	if recs == nil {
		recs = []repository.Record{}
	}
	return recs
}

// PurgeExpired drops expired rows from the replica. It is not bounded by the
// replica timeout; callers pass their own deadline.
func (h *HybridStorage) PurgeExpired(ctx context.Context) (int64, error) {
	if h.replica == nil {
		return 0, ErrNoReplica
	}
	start := time.Now()
	n, err := h.replica.PurgeExpired(ctx)
	if err != nil {
		h.metrics.observe(backendReplica, "purge", outcomeError, start)
		return 0, fmt.Errorf("%w: replica purge: %w", ErrBackendUnavailable, err)
	}
	h.metrics.observe(backendReplica, "purge", outcomeOK, start)
	h.logger.Info("purged expired payloads", zap.Int64("count", n))
	return n, nil
}

// Wait blocks until every detached replica write has finished.
func (h *HybridStorage) Wait() {
	h.background.Wait()
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrTimeout) {
		return outcomeTimeout
	}
	return outcomeError
}

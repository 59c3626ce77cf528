// Package bootstrap builds the storage stack from configuration. It is shared
// by the HTTP server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/config"
	"exnotify/payloadhub/internal/model"
	"exnotify/payloadhub/internal/repository"
	"exnotify/payloadhub/internal/storage"
)

// Storage is an assembled HybridStorage plus the hook that releases its
// connections.
type Storage struct {
	*storage.HybridStorage
	closers []func() error
}

// Close drains detached writes, then closes backends in reverse order.
func (s *Storage) Close() error {
	if s.HybridStorage != nil {
		s.Wait()
	}
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewStorage opens the configured primary and replica backends and wraps
// them in a HybridStorage. reg may be nil.
func NewStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Storage, error) {
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	s := &Storage{}

	primary, err := newPrimary(ctx, cfg, logger, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	replica, err := newReplica(cfg, logger, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	hybrid, err := storage.NewHybridStorage(primary, replica, cfg.Storage, logger, storage.NewMetrics(reg))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.HybridStorage = hybrid
	return s, nil
}

func newPrimary(ctx context.Context, cfg *config.Config, logger *zap.Logger, s *Storage) (repository.PrimaryStore, error) {
	switch cfg.Storage.PrimaryBackend {
	case "redis":
		client, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		logger.Info("using Redis primary store", zap.String("key_prefix", cfg.Storage.KeyPrefix))
		return repository.NewRedisPrimaryStore(client, cfg.Storage.KeyPrefix), nil
	case "memory":
		store, err := repository.NewMemoryPrimaryStore(ctx, cfg.Storage.DefaultTTL())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		logger.Info("using in-memory primary store")
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown primary_backend %q", config.ErrInvalidStorageConfig, cfg.Storage.PrimaryBackend)
}

// newReplica returns a nil interface (not a typed nil) for "none" so the
// hybrid store sees no replica.
func newReplica(cfg *config.Config, logger *zap.Logger, s *Storage) (repository.ReplicaStore, error) {
	switch cfg.Storage.ReplicaBackend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sqlDB.Close)

		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info("database migration completed")
		}
		logger.Info("using PostgreSQL replica store")
		return repository.NewPGReplicaStore(db), nil
	case "memory":
		logger.Info("using in-memory replica store")
		return repository.NewMemoryReplicaStore(), nil
	case "none":
		logger.Warn("no replica store configured; fallback, dual write and listing are disabled")
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown replica_backend %q", config.ErrInvalidStorageConfig, cfg.Storage.ReplicaBackend)
}

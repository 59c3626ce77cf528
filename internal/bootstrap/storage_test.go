package bootstrap

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.PrimaryBackend = "memory"
	cfg.Storage.ReplicaBackend = "memory"
	return cfg
}

func TestNewStorageInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(ctx, memoryConfig(t), zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Close()) }()

	require.NoError(t, s.Put(ctx, "k", "v"))
	val, found := s.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	s.Wait()
	assert.Len(t, s.List(ctx), 1)
}

func TestNewStorageWithoutReplica(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.Storage.ReplicaBackend = "none"

	s, err := NewStorage(ctx, cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "k", "v"))
	assert.Empty(t, s.List(ctx))
}

func TestNewStorageRejectsBadConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.ReplicaBackend = "d1"

	_, err := NewStorage(context.Background(), cfg, zap.NewNop(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidStorageConfig)
}

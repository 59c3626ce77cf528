package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultStorageConfig(), cfg.Storage)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Storage.PrimaryTimeout())
	assert.Equal(t, 3*time.Second, cfg.Storage.ReplicaTimeout())
	assert.Equal(t, 30*24*time.Hour, cfg.Storage.DefaultTTL())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  primary_backend: memory
  replica_backend: memory
  enable_dual_write: false
  primary_timeout_ms: 250
  default_ttl_seconds: 60
admin:
  subjects: ["ops"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.PrimaryBackend)
	assert.False(t, cfg.Storage.EnableDualWrite)
	assert.True(t, cfg.Storage.EnableFallback)
	assert.Equal(t, 250, cfg.Storage.PrimaryTimeoutMs)
	assert.Equal(t, 3000, cfg.Storage.ReplicaTimeoutMs)
	assert.Equal(t, []string{"ops"}, cfg.Admin.Subjects)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STORAGE_ENABLE_FALLBACK", "false")
	t.Setenv("STORAGE_PRIMARY_TIMEOUT_MS", "1200")
	t.Setenv("STORAGE_ENABLE_DEBUG_LOGS", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Storage.EnableFallback)
	assert.Equal(t, 1200, cfg.Storage.PrimaryTimeoutMs)
	assert.True(t, cfg.Storage.EnableDebugLogs)
}

func TestLoadRejectsInvalidStorage(t *testing.T) {
	path := writeConfig(t, `
storage:
  replica_timeout_ms: 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStorageConfig))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStorageConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StorageConfig)
		ok     bool
	}{
		{"defaults", func(*StorageConfig) {}, true},
		{"negative primary timeout", func(c *StorageConfig) { c.PrimaryTimeoutMs = -1 }, false},
		{"zero ttl", func(c *StorageConfig) { c.DefaultTTLSeconds = 0 }, false},
		{"unknown primary", func(c *StorageConfig) { c.PrimaryBackend = "kv" }, false},
		{"unknown replica", func(c *StorageConfig) { c.ReplicaBackend = "d1" }, false},
		{"no replica", func(c *StorageConfig) { c.ReplicaBackend = "none" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultStorageConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidStorageConfig)
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidStorageConfig is returned when the storage policy cannot be used.
var ErrInvalidStorageConfig = errors.New("invalid storage config")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig is the hybrid storage policy. It is read once at startup and
// handed to the storage layer by value.
type StorageConfig struct {
	PrimaryBackend    string `mapstructure:"primary_backend"` // "redis" | "memory"
	ReplicaBackend    string `mapstructure:"replica_backend"` // "postgres" | "memory" | "none"
	KeyPrefix         string `mapstructure:"key_prefix"`
	EnableFallback    bool   `mapstructure:"enable_fallback"`
	EnableDualWrite   bool   `mapstructure:"enable_dual_write"`
	PrimaryTimeoutMs  int    `mapstructure:"primary_timeout_ms"`
	ReplicaTimeoutMs  int    `mapstructure:"replica_timeout_ms"`
	EnableDebugLogs   bool   `mapstructure:"enable_debug_logs"`
	DefaultTTLSeconds int    `mapstructure:"default_ttl_seconds"`
}

type JWTConfig struct {
	SigningKey    string        `mapstructure:"signing_key"`
	Issuer        string        `mapstructure:"issuer"`
	AdminTokenTTL time.Duration `mapstructure:"admin_token_ttl"`
}

type AdminConfig struct {
	Subjects []string `mapstructure:"subjects"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultStorageConfig mirrors the defaults applied when neither the config
// file nor the environment sets a storage option.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		PrimaryBackend:    "redis",
		ReplicaBackend:    "postgres",
		KeyPrefix:         "payload:",
		EnableFallback:    true,
		EnableDualWrite:   true,
		PrimaryTimeoutMs:  5000,
		ReplicaTimeoutMs:  3000,
		EnableDebugLogs:   false,
		DefaultTTLSeconds: 60 * 60 * 24 * 30,
	}
}

func (c StorageConfig) PrimaryTimeout() time.Duration {
	return time.Duration(c.PrimaryTimeoutMs) * time.Millisecond
}

func (c StorageConfig) ReplicaTimeout() time.Duration {
	return time.Duration(c.ReplicaTimeoutMs) * time.Millisecond
}

func (c StorageConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// Validate reports a wrapped ErrInvalidStorageConfig for the first bad field.
func (c StorageConfig) Validate() error {
	if err := c.ValidatePolicy(); err != nil {
		return err
	}
	switch c.PrimaryBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("%w: unknown primary_backend %q", ErrInvalidStorageConfig, c.PrimaryBackend)
	}
	switch c.ReplicaBackend {
	case "postgres", "memory", "none":
	default:
		return fmt.Errorf("%w: unknown replica_backend %q", ErrInvalidStorageConfig, c.ReplicaBackend)
	}
	return nil
}

// ValidatePolicy checks only the timeout and TTL fields, which is all the
// storage layer itself depends on.
func (c StorageConfig) ValidatePolicy() error {
	switch {
	case c.PrimaryTimeoutMs <= 0:
		return fmt.Errorf("%w: primary_timeout_ms must be positive, got %d", ErrInvalidStorageConfig, c.PrimaryTimeoutMs)
	case c.ReplicaTimeoutMs <= 0:
		return fmt.Errorf("%w: replica_timeout_ms must be positive, got %d", ErrInvalidStorageConfig, c.ReplicaTimeoutMs)
	case c.DefaultTTLSeconds <= 0:
		return fmt.Errorf("%w: default_ttl_seconds must be positive, got %d", ErrInvalidStorageConfig, c.DefaultTTLSeconds)
	}
	return nil
}

// Load reads the YAML config at path, overlays environment variables, and
// returns Config. An empty path skips the file and uses defaults plus env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable override: STORAGE_ENABLE_FALLBACK -> storage.enable_fallback
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 15*time.Second)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("database.postgres.auto_migrate", true)
	v.SetDefault("database.redis.host", "localhost")
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	d := DefaultStorageConfig()
	v.SetDefault("storage.primary_backend", d.PrimaryBackend)
	v.SetDefault("storage.replica_backend", d.ReplicaBackend)
	v.SetDefault("storage.key_prefix", d.KeyPrefix)
	v.SetDefault("storage.enable_fallback", d.EnableFallback)
	v.SetDefault("storage.enable_dual_write", d.EnableDualWrite)
	v.SetDefault("storage.primary_timeout_ms", d.PrimaryTimeoutMs)
	v.SetDefault("storage.replica_timeout_ms", d.ReplicaTimeoutMs)
	v.SetDefault("storage.enable_debug_logs", d.EnableDebugLogs)
	v.SetDefault("storage.default_ttl_seconds", d.DefaultTTLSeconds)

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "payloadhub")
	v.SetDefault("jwt.admin_token_ttl", 12*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

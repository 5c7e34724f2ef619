// Package config loads server configuration from defaults, an optional file
// and LADDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LADDER_SERVER_PORT
const EnvPrefix = "LADDER"

// Storage backend names
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageBolt     = "bolt"
)

// Config holds the complete configuration for the server
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Ladder  LadderConfig  `mapstructure:"ladder"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Type            string `mapstructure:"type"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	PostgresDSN     string `mapstructure:"postgres_dsn"`
	RedisURL        string `mapstructure:"redis_url"`
	BoltPath        string `mapstructure:"bolt_path"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

type LadderConfig struct {
	KFactor       int    `mapstructure:"k_factor"`
	Timezone      string `mapstructure:"timezone"`
	RecentMatches int    `mapstructure:"recent_matches"`
}

// Location resolves the configured time zone used for week boundaries
func (c LadderConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	// The event stream holds responses open, so no write timeout by default
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.sqlite_path", "ladder.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.redis_url", "redis://localhost:6379")
	v.SetDefault("storage.bolt_path", "ladder.bolt")
	v.SetDefault("storage.connect_attempts", 5)

	v.SetDefault("ladder.k_factor", 96)
	v.SetDefault("ladder.timezone", "UTC")
	v.SetDefault("ladder.recent_matches", 50)
}

// Default returns the configuration with no file or environment applied
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. path may be empty to skip the config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for sqlite storage")
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for postgres storage")
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for redis storage")
		}
	case StorageBolt:
		if c.Storage.BoltPath == "" {
			return errors.New("storage.bolt_path is required for bolt storage")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	if c.Storage.ConnectAttempts < 1 {
		return errors.New("storage.connect_attempts must be at least 1")
	}

	if c.Ladder.KFactor <= 0 {
		return errors.New("ladder.k_factor must be positive")
	}
	if c.Ladder.RecentMatches <= 0 {
		return errors.New("ladder.recent_matches must be positive")
	}
	if _, err := c.Ladder.Location(); err != nil {
		return fmt.Errorf("ladder.timezone: %w", err)
	}
	return nil
}

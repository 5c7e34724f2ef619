package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 96, cfg.Ladder.KFactor)
	assert.Equal(t, "UTC", cfg.Ladder.Timezone)
	assert.Equal(t, 50, cfg.Ladder.RecentMatches)
}

func TestDefaultMatchesLoad(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, loaded, Default())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LADDER_SERVER_PORT", "9090")
	t.Setenv("LADDER_STORAGE_TYPE", "redis")
	t.Setenv("LADDER_STORAGE_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("LADDER_LADDER_K_FACTOR", "32")
	t.Setenv("LADDER_LADDER_TIMEZONE", "Europe/Oslo")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/2", cfg.Storage.RedisURL)
	assert.Equal(t, 32, cfg.Ladder.KFactor)

	loc, err := cfg.Ladder.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Oslo", loc.String())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	content := `
server:
  port: 7000
storage:
  type: bolt
  bolt_path: /var/lib/ladder/ladder.bolt
ladder:
  recent_matches: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, StorageBolt, cfg.Storage.Type)
	assert.Equal(t, "/var/lib/ladder/ladder.bolt", cfg.Storage.BoltPath)
	assert.Equal(t, 20, cfg.Ladder.RecentMatches)
	assert.Equal(t, 96, cfg.Ladder.KFactor)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600))
	t.Setenv("LADDER_SERVER_PORT", "7001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "cassandra" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = StoragePostgres }},
		{"zero k factor", func(c *Config) { c.Ladder.KFactor = 0 }},
		{"bad timezone", func(c *Config) { c.Ladder.Timezone = "Mars/Olympus" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero recent matches", func(c *Config) { c.Ladder.RecentMatches = 0 }},
		{"zero connect attempts", func(c *Config) { c.Storage.ConnectAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any port in range with defaults is valid", prop.ForAll(
		func(port, k int) bool {
			cfg := Default()
			cfg.Server.Port = port
			cfg.Ladder.KFactor = k
			return cfg.Validate() == nil
		},
		gen.IntRange(0, 65535),
		gen.IntRange(1, 200),
	))

	properties.Property("ports out of range are rejected", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			return cfg.Validate() != nil
		},
		gen.OneGenOf(gen.IntRange(-100000, -1), gen.IntRange(65536, 1000000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

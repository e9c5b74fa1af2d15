package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	// An explicitly named file has to exist
	_, err := load(filepath.Join(t.TempDir(), "none.yaml"), env(nil))
	require.Error(t, err)

	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
db_path: /tmp/site.db
log_level: debug
timezone: UTC
rate_limit:
  requests: 20
  window: 10s
monitor:
  recompute_workers: 8
`), 0o600))

	cfg, err := load(path, env(map[string]string{"DB_PATH": "/var/lib/fence.db"}))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Port)
	require.Equal(t, "/var/lib/fence.db", cfg.DBPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, time.UTC, cfg.Location())
	require.Equal(t, RateLimitConfig{Requests: 20, Window: 10 * time.Second}, cfg.RateLimit)
	require.Equal(t, 8, cfg.Monitor.RecomputeWorkers)
	// Untouched keys keep their defaults
	require.Equal(t, 5*time.Second, cfg.Monitor.BusyTimeout)
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fence.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	cfg, err := load("", env(map[string]string{"FENCE_CONFIG": path, "PORT": ":7000"}))
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, ":7000", cfg.Port)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	for name, mutate := range map[string]func(*Config){
		"empty port": func(c *Config) { c.Port = "" },
		"empty db":   func(c *Config) { c.DBPath = "" },
		"bad level":  func(c *Config) { c.LogLevel = "loud" },
		"zero rate":  func(c *Config) { c.RateLimit.Requests = 0 },
		"no workers": func(c *Config) { c.Monitor.RecomputeWorkers = 0 },
		"bad zone":   func(c *Config) { c.Timezone = "Mars/Olympus" },
	} {
		cfg := Default()
		mutate(cfg)
		require.Error(t, cfg.Validate(), name)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/site-fence-backend-go/internal/logger"
)

// Config 应用配置
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	// Timezone is the IANA zone effective-time windows are read in
	Timezone string `yaml:"timezone"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Monitor   MonitorConfig   `yaml:"monitor"`

	location *time.Location
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// MonitorConfig 围栏监测配置
type MonitorConfig struct {
	RecomputeWorkers int `yaml:"recompute_workers"`
	// BusyTimeout is how long SQLite writers wait on a locked database
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

const (
	// DefaultConfigFilename is read when no path is given and the file exists
	DefaultConfigFilename = "fence-server.yaml"

	DefaultPort     = ":8080"
	DefaultDBPath   = "./data/fence/fence.db"
	DefaultLogLevel = "info"
	DefaultTimezone = "Asia/Shanghai"
)

var (
	errPortRequired    = errors.New("port must be provided")
	errDBPathRequired  = errors.New("db_path must be provided")
	errInvalidLogLevel = errors.New("unknown log_level")
	errInvalidRate     = errors.New("rate_limit requests and window must be positive")
	errInvalidWorkers  = errors.New("monitor.recompute_workers must be positive")
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:     DefaultPort,
		DBPath:   DefaultDBPath,
		LogLevel: DefaultLogLevel,
		Timezone: DefaultTimezone,
		RateLimit: RateLimitConfig{
			Requests: 600,
			Window:   time.Minute,
		},
		Monitor: MonitorConfig{
			RecomputeWorkers: 4,
			BusyTimeout:      5 * time.Second,
		},
	}
}

// Load 加载配置: defaults, then the YAML file, then environment variables.
//
// path falls back to FENCE_CONFIG and then DefaultConfigFilename. Only an
// explicitly named file has to exist.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getenv("FENCE_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg, getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if dbPath := getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if tz := getenv("TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	if n, err := strconv.Atoi(getenv("RECOMPUTE_WORKERS")); err == nil {
		cfg.Monitor.RecomputeWorkers = n
	}
}

// Validate checks required fields and resolves the time zone
func (c *Config) Validate() error {
	if c.Port == "" {
		return errPortRequired
	}
	// gin expects host:port
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.DBPath == "" {
		return errDBPathRequired
	}
	if _, ok := logger.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.LogLevel)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errInvalidRate
	}
	if c.Monitor.RecomputeWorkers <= 0 {
		return errInvalidWorkers
	}

	loc := time.Local
	if c.Timezone != "" && c.Timezone != "Local" {
		var err error
		if loc, err = time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	c.location = loc

	return nil
}

// Location returns the resolved time zone. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

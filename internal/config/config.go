package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all productwizard configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// DatabaseConfig selects the products table backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, sqlite3, sqlite
	DSN    string `yaml:"dsn"`
}

type SessionConfig struct {
	CookieName      string `yaml:"cookie_name"`
	TTL             string `yaml:"ttl"`
	CleanupInterval string `yaml:"cleanup_interval"`
	SecureCookie    bool   `yaml:"secure_cookie"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "5s",
			WriteTimeout: "10s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "productwizard.db",
		},
		Session: SessionConfig{
			CookieName:      "productwizard_session",
			TTL:             "30m",
			CleanupInterval: "5m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment variables, including those from a .env file in the working
// directory, override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env is optional; existing environment variables win over it.
	_ = godotenv.Load()

	cfg.applyEnvOverrides()

	return cfg, nil
}

// ErrConfigExists is returned by WriteFile when path is taken and overwrite
// was not requested.
var ErrConfigExists = errors.New("config file already exists")

// WriteFile writes c as YAML to path. The file is replaced atomically and is
// only readable by the owner, since the DSN may carry credentials.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".productwizard-*.yaml")
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if addr := os.Getenv("PRODUCTWIZARD_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		c.Session.TTL = ttl
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 5*time.Second)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 10*time.Second)
}

func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 30*time.Minute)
}

func (c *Config) GetCleanupInterval() time.Duration {
	return parseDuration(c.Session.CleanupInterval, 5*time.Minute)
}

var (
	ValidDrivers   = []string{"postgres", "sqlite3", "sqlite"}
	ValidLogLevels = []string{"debug", "info", "warn", "error"}
)

func (c *Config) Validate() error {
	if !slices.Contains(ValidDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver: %s (valid: %v)", c.Database.Driver, ValidDrivers)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn not configured (set database.dsn or DATABASE_URL)")
	}
	if !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name must not be empty")
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("invalid session ttl %q: %w", c.Session.TTL, err)
	}
	return nil
}

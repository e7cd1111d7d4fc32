// Package config handles the configuration directory and the optional
// config.yaml inside it.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskbridge"

	// ConfigFile is the configuration filename inside Dir.
	ConfigFile = "config.yaml"

	// SettingsFile is the default file settings backend.
	SettingsFile = "settings.yaml"

	// DatabaseFile is the default sqlite settings backend.
	DatabaseFile = "settings.db"

	// EnvPrefix prefixes environment overrides, e.g. TASKBRIDGE_REDIS_URL.
	EnvPrefix = "TASKBRIDGE"
)

// Settings backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendAzure  = "azure"
	BackendMemory = "memory"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `mapstructure:"-"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`

	// Quiet suppresses informational output.
	Quiet bool `mapstructure:"-"`

	// User is the user id commands act for.
	User string `mapstructure:"user"`

	// Timeout bounds each platform operation.
	Timeout time.Duration `mapstructure:"timeout"`

	// Listen is the HTTP listen address for serve.
	Listen string `mapstructure:"listen"`

	Settings SettingsConfig `mapstructure:"settings"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// SettingsConfig selects where per-user platform settings live.
type SettingsConfig struct {
	Backend string `mapstructure:"backend"`

	// Path is the file or sqlite database path; relative paths are under Dir.
	Path string `mapstructure:"path"`

	AzureConnectionString string `mapstructure:"azure_connection_string"`
	AzureTable            string `mapstructure:"azure_table"`
}

// RedisConfig enables the settings cache when URL is set.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// New creates a Config with defaults for the default or specified config
// directory, without reading any file.
// If configDir is empty, uses XDG_CONFIG_HOME/taskbridge or $HOME/.config/taskbridge.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:     dir,
		User:    defaultUser(),
		Timeout: 10 * time.Second,
		Listen:  ":8080",
		Settings: SettingsConfig{
			Backend:    BackendFile,
			AzureTable: "PlatformSettings",
		},
		Redis: RedisConfig{TTL: 5 * time.Minute},
	}, nil
}

// Load creates a Config and merges Dir/config.yaml (if present) and
// TASKBRIDGE_* environment variables over the defaults.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults make every key known to viper so env overrides apply on Unmarshal.
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("user", cfg.User)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("settings.backend", cfg.Settings.Backend)
	v.SetDefault("settings.path", cfg.Settings.Path)
	v.SetDefault("settings.azure_connection_string", cfg.Settings.AzureConnectionString)
	v.SetDefault("settings.azure_table", cfg.Settings.AzureTable)
	v.SetDefault("redis.url", cfg.Redis.URL)
	v.SetDefault("redis.ttl", cfg.Redis.TTL)

	if _, err := os.Stat(cfg.Path()); err == nil {
		v.SetConfigFile(cfg.Path())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	switch c.Settings.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendAzure:
		if c.Settings.AzureConnectionString == "" {
			return fmt.Errorf("settings.azure_connection_string required for backend %q", BackendAzure)
		}
	default:
		return fmt.Errorf("unknown settings backend: %q", c.Settings.Backend)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SettingsPath returns the file or database path for the settings backend.
func (c *Config) SettingsPath() string {
	p := c.Settings.Path
	if p == "" {
		if c.Settings.Backend == BackendSQLite {
			p = DatabaseFile
		} else {
			p = SettingsFile
		}
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "~") {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

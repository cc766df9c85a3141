// Package config loads snooze-cli settings from defaults, an optional YAML
// file and SNOOZE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/robertmeta/snooze-cli/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const appName = "snooze-cli"

// Config represents the complete application configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
}

// APIConfig holds remote API settings.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// RequestsPerSecond of 0 disables client-side rate limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StoreConfig holds local session storage settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfigPath returns the config file location under the XDG config home.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultStorePath returns the session database location under the XDG data home.
func DefaultStorePath() string {
	return filepath.Join(xdg.DataHome, appName, "snooze.db")
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values. An empty path
// looks for config.yaml in the XDG config directory; a missing file there
// is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SNOOZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", api.DefaultBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.requests_per_second", 5)
	v.SetDefault("api.burst", 10)

	v.SetDefault("store.path", DefaultStorePath())

	v.SetDefault("log.level", "info")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative")
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1 when rate limiting is enabled")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if _, err := c.Log.ZerologLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ZerologLevel parses the configured level name.
func (c LogConfig) ZerologLevel() (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(c.Level))
}

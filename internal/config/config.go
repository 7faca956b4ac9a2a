// Package config loads masf runtime settings from a file and MASF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Store   StoreConfig   `mapstructure:"store"`
	Trace   TraceConfig   `mapstructure:"trace"`
	Model   ModelConfig   `mapstructure:"model"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// StoreConfig selects where step records go: memory, sqlite or mysql.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ModelConfig selects the chat model: none, anthropic, openai or google.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	APIKey   string `mapstructure:"api_key"`
}

var (
	storeDrivers   = []string{"memory", "sqlite", "mysql"}
	modelProviders = []string{"none", "anthropic", "openai", "google"}
	logFormats     = []string{"text", "json"}
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Driver: "memory"},
		Model: ModelConfig{Provider: "none"},
	}
}

// Load reads path, if given, and applies MASF_* environment overrides,
// e.g. MASF_MODEL_API_KEY for model.api_key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MASF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// the file does not mention.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("trace.enabled", d.Trace.Enabled)
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.api_key", d.Model.APIKey)
}

// Validate checks enumerated settings and provider credentials.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q: want one of %v", c.Log.Format, logFormats))
	}
	if !slices.Contains(storeDrivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver %q: want one of %v", c.Store.Driver, storeDrivers))
	}
	if c.Store.Driver == "mysql" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required for mysql"))
	}
	if !slices.Contains(modelProviders, c.Model.Provider) {
		errs = append(errs, fmt.Errorf("model.provider %q: want one of %v", c.Model.Provider, modelProviders))
	} else if c.Model.Provider != "none" && c.Model.APIKey == "" {
		errs = append(errs, fmt.Errorf("model provider %q is configured but model.api_key is empty", c.Model.Provider))
	}
	return errors.Join(errs...)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

// Package config loads runtime configuration from a YAML file overlaid
// with command-line flags.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the runtime configuration of the libgate binary.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string for the policy store.
	DatabaseURL string `json:"database_url,omitempty" koanf:"database_url"`

	// RedisURL enables the cross-process invalidation watcher when set.
	RedisURL string `json:"redis_url,omitempty" koanf:"redis_url"`

	// AutoReloadInterval reloads the policy snapshot periodically as a
	// safety net for missed invalidations. Zero disables the loop.
	AutoReloadInterval time.Duration `json:"auto_reload_interval,omitempty" koanf:"auto_reload_interval"`

	// MetricsAddr is the listen address of the metrics/health server.
	MetricsAddr string `json:"metrics_addr,omitempty" koanf:"metrics_addr"`

	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string `json:"log_format,omitempty" koanf:"log_format"`
}

// Default returns the configuration used when neither file nor flags set
// a value.
func Default() Config {
	return Config{
		MetricsAddr: ":9180",
		LogFormat:   "json",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then flag overrides. Flag names use dashes and map onto the
// underscore config keys.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := ValidateFile(path); err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "load config file")
		}
	}
	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key string, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").Wrapf(err, "apply flag overrides")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrapf(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values; a missing DatabaseURL is allowed here
// since not every subcommand needs the database.
func (c Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").With("log_format", c.LogFormat).
			Errorf("log_format must be json or text")
	}
	if c.AutoReloadInterval < 0 {
		return oops.Code("CONFIG_INVALID").With("auto_reload_interval", c.AutoReloadInterval.String()).
			Errorf("auto_reload_interval must not be negative")
	}
	return nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	return nil
}

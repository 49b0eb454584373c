// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding values loaded from a config file.
const (
	EnvPath         = "SQLITE_STMT_PATH"
	EnvBusyTimeout  = "SQLITE_STMT_BUSY_TIMEOUT"
	EnvExclusiveWAL = "SQLITE_STMT_EXCLUSIVE_WAL"
)

// Config describes how to open a Database. Config files use the keys path,
// exclusive_wal and busy_timeout.
type Config struct {
	Path         string
	ExclusiveWAL bool
	BusyTimeout  time.Duration
}

// fileConfig is the on-disk form; durations are strings like "500ms".
type fileConfig struct {
	Path         *string `yaml:"path" toml:"path"`
	ExclusiveWAL *bool   `yaml:"exclusive_wal" toml:"exclusive_wal"`
	BusyTimeout  *string `yaml:"busy_timeout" toml:"busy_timeout"`
}

// DefaultConfig returns the settings Open uses without options.
func DefaultConfig() Config {
	return Config{ExclusiveWAL: true, BusyTimeout: DefaultBusyTimeout}
}

// ParseConfig decodes a YAML document on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("can't unmarshal config: %w", err)
	}
	return fc.apply(DefaultConfig())
}

// ParseConfigTOML decodes a TOML document on top of DefaultConfig.
func ParseConfigTOML(data []byte) (Config, error) {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("can't unmarshal config: %w", err)
	}
	return fc.apply(DefaultConfig())
}

// LoadConfig reads the config file fname, guessing its format by extension
// (.yml, .yaml or no extension for YAML, .toml for TOML), then applies the
// environment overrides. The result is validated.
func LoadConfig(fname string) (Config, error) {
	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		return Config{}, fmt.Errorf("can't read config %s: %w", fname, err)
	}

	var cfg Config
	switch ext := filepath.Ext(fname); ext {
	case ".yml", ".yaml", "":
		cfg, err = ParseConfig(data)
	case ".toml":
		cfg, err = ParseConfigTOML(data)
	default:
		return Config{}, fmt.Errorf("unknown config format %s", fname)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", fname, err)
	}

	if cfg, err = cfg.WithEnv(); err != nil {
		return Config{}, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s is invalid: %w", fname, err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg Config) (Config, error) {
	if fc.Path != nil {
		cfg.Path = *fc.Path
	}
	if fc.ExclusiveWAL != nil {
		cfg.ExclusiveWAL = *fc.ExclusiveWAL
	}
	if fc.BusyTimeout != nil {
		d, err := time.ParseDuration(*fc.BusyTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid busy_timeout %q: %w", *fc.BusyTimeout, err)
		}
		cfg.BusyTimeout = d
	}
	return cfg, nil
}

// WithEnv returns cfg with the values of EnvPath, EnvBusyTimeout and
// EnvExclusiveWAL applied, where set. Every malformed variable is reported.
func (cfg Config) WithEnv() (Config, error) {
	errs := new(multierror.Error)
	if v, ok := os.LookupEnv(EnvPath); ok {
		cfg.Path = v
	}
	if v, ok := os.LookupEnv(EnvBusyTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", EnvBusyTimeout, err))
		} else {
			cfg.BusyTimeout = d
		}
	}
	if v, ok := os.LookupEnv(EnvExclusiveWAL); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", EnvExclusiveWAL, err))
		} else {
			cfg.ExclusiveWAL = b
		}
	}
	return cfg, errs.ErrorOrNil()
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() error {
	errs := new(multierror.Error)
	if cfg.Path == "" {
		errs = multierror.Append(errs, errors.New("path is required, use \":memory:\" for an in-memory database"))
	}
	if cfg.BusyTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("busy_timeout must not be negative, got %v", cfg.BusyTimeout))
	}
	if cfg.BusyTimeout%time.Millisecond != 0 {
		errs = multierror.Append(errs, fmt.Errorf("busy_timeout must be a whole number of milliseconds, got %v", cfg.BusyTimeout))
	}
	return errs.ErrorOrNil()
}

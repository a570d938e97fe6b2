// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the benchfleet
// collector.
//
// Configuration is loaded from a single YAML file specified by the
// --config flag or the BENCHFLEET_CONFIG environment variable. There
// is no automatic discovery: an unset path means built-in defaults,
// which command-line flags may override. This keeps the effective
// configuration deterministic and auditable.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no --config
// flag is passed.
const EnvVar = "BENCHFLEET_CONFIG"

// Collector is the collector service configuration. YAML keys:
// listen, secret, results_root, shutdown_timeout (Go duration
// string), log_progress.
type Collector struct {
	// Listen is the TCP listen address. Defaults to ":8080".
	Listen string

	// Secret is the shared credential runners must present. When
	// empty the built-in default is used (and warned about) so a
	// fresh deployment starts without ceremony.
	Secret string

	// ResultsRoot is the directory under which uploaded result
	// bundles are stored. Defaults to "BenchmarkResults".
	ResultsRoot string

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration

	// LogProgress registers the logging progress listener, which
	// writes one line per progress update. An external renderer
	// replaces it by registering its own listener.
	LogProgress bool
}

// Default returns the built-in collector configuration.
func Default() Collector {
	return Collector{
		Listen:          ":8080",
		ResultsRoot:     "BenchmarkResults",
		ShutdownTimeout: 10 * time.Second,
		LogProgress:     true,
	}
}

// Load reads the collector configuration from path. An empty path
// falls back to the EnvVar; if that is unset too, the defaults are
// returned. Unknown YAML keys are rejected — a typoed key silently
// reverting to a default is worse than a startup failure.
func Load(path string) (Collector, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Collector{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	// YAML carries durations as strings; decode into a file-shape
	// struct and parse.
	var file struct {
		Listen          string `yaml:"listen"`
		Secret          string `yaml:"secret"`
		ResultsRoot     string `yaml:"results_root"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		LogProgress     *bool  `yaml:"log_progress"`
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return Collector{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if file.Listen != "" {
		cfg.Listen = file.Listen
	}
	if file.Secret != "" {
		cfg.Secret = file.Secret
	}
	if file.ResultsRoot != "" {
		cfg.ResultsRoot = file.ResultsRoot
	}
	if file.ShutdownTimeout != "" {
		timeout, err := time.ParseDuration(file.ShutdownTimeout)
		if err != nil {
			return Collector{}, fmt.Errorf("parsing config %s: shutdown_timeout: %w", path, err)
		}
		if timeout <= 0 {
			return Collector{}, fmt.Errorf("parsing config %s: shutdown_timeout must be positive", path)
		}
		cfg.ShutdownTimeout = timeout
	}
	if file.LogProgress != nil {
		cfg.LogProgress = *file.LogProgress
	}
	return cfg, nil
}

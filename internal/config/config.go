// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package config loads the toolkit's YAML configuration file and
// watches it for changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSamplingInterval = 250 * time.Millisecond
	DefaultListenAddress    = ":8080"
	DefaultHostProcPath     = "/proc"
)

// Duration is a time.Duration that unmarshals from YAML strings such
// as "250ms" or "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full on-disk configuration.
type Config struct {
	// SamplingInterval is the base cadence handed to the adaptive
	// sampler.
	SamplingInterval Duration `yaml:"sampling_interval"`

	// Adaptive enables caching and background backoff around the
	// platform sampler.
	Adaptive bool `yaml:"adaptive"`

	// ListenAddress is the HTTP bind address for the serve command.
	ListenAddress string `yaml:"listen_address"`

	// HostProcPath points the tick-based samplers at an alternate
	// procfs mount, e.g. /host/proc inside a container.
	HostProcPath string `yaml:"host_proc_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		SamplingInterval: Duration(DefaultSamplingInterval),
		Adaptive:         true,
		ListenAddress:    DefaultListenAddress,
		HostProcPath:     DefaultHostProcPath,
	}
}

// Load reads and validates a configuration file. Fields absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	// A rewrite is truncate-then-write; the truncate event races the
	// reload and must not pass validation as an all-defaults revision.
	if len(data) == 0 {
		return cfg, fmt.Errorf("config file is empty")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SamplingInterval <= 0 {
		return fmt.Errorf("sampling_interval must be positive, got %s", time.Duration(c.SamplingInterval))
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address must not be empty")
	}
	return nil
}

// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for varbridge components.
type Config struct {
	// Environment identifies the deployment type (development,
	// staging, production).
	Environment Environment `yaml:"environment"`

	// Server configures the variable-server connection.
	Server ServerConfig `yaml:"server"`

	// Bridge configures the client bridge.
	Bridge BridgeConfig `yaml:"bridge"`

	// EnvironmentOverrides contains per-environment overrides,
	// applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server *ServerConfig `yaml:"server,omitempty"`
	Bridge *BridgeConfig `yaml:"bridge,omitempty"`
}

// ServerConfig configures the variable-server connection.
type ServerConfig struct {
	// SocketPath is the Unix socket path of the variable server.
	// Default: /run/varserver/varserver.sock
	SocketPath string `yaml:"socket_path"`

	// DialTimeout bounds the connect attempt, as a Go duration
	// string. Default: 5s
	DialTimeout string `yaml:"dial_timeout"`
}

// BridgeConfig configures the client bridge.
type BridgeConfig struct {
	// EventBuffer is the capacity of the event channel between the
	// dispatcher and Wait. Events beyond it apply backpressure to
	// the server connection rather than being dropped. Default: 32
	EventBuffer int `yaml:"event_buffer"`

	// MaxValueBytes bounds string payloads fetched by get. Zero
	// means the protocol maximum (value.MaxStringLen). Values the
	// server reports as larger are truncated, never overflowed.
	MaxValueBytes int `yaml:"max_value_bytes"`

	// TimerInterval enables synthesized timer events on the wait
	// channel at this interval, as a Go duration string. Empty
	// disables the timer signal.
	TimerInterval string `yaml:"timer_interval"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback —
// the config file is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			SocketPath:  "/run/varserver/varserver.sock",
			DialTimeout: "5s",
		},
		Bridge: BridgeConfig{
			EventBuffer:   32,
			MaxValueBytes: 0,
			TimerInterval: "",
		},
	}
}

// Load loads configuration from the VARBRIDGE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks or defaults — if VARBRIDGE_CONFIG is
// not set, this fails. This ensures deterministic, auditable
// configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("VARBRIDGE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("VARBRIDGE_CONFIG environment variable not set; " +
			"set it to the path of your varbridge.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values. The only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.SocketPath != "" {
			c.Server.SocketPath = overrides.Server.SocketPath
		}
		if overrides.Server.DialTimeout != "" {
			c.Server.DialTimeout = overrides.Server.DialTimeout
		}
	}

	if overrides.Bridge != nil {
		if overrides.Bridge.EventBuffer != 0 {
			c.Bridge.EventBuffer = overrides.Bridge.EventBuffer
		}
		if overrides.Bridge.MaxValueBytes != 0 {
			c.Bridge.MaxValueBytes = overrides.Bridge.MaxValueBytes
		}
		if overrides.Bridge.TimerInterval != "" {
			c.Bridge.TimerInterval = overrides.Bridge.TimerInterval
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Server.SocketPath = expandVars(c.Server.SocketPath, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// DialTimeout parses the dial timeout duration.
func (c *ServerConfig) ParseDialTimeout() (time.Duration, error) {
	if c.DialTimeout == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.dial_timeout: %w", err)
	}
	return d, nil
}

// ParseTimerInterval parses the timer interval duration. Zero with a
// nil error means the timer signal is disabled.
func (c *BridgeConfig) ParseTimerInterval() (time.Duration, error) {
	if c.TimerInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TimerInterval)
	if err != nil {
		return 0, fmt.Errorf("bridge.timer_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("bridge.timer_interval must be positive, got %s", c.TimerInterval)
	}
	return d, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Server.SocketPath == "" {
		errs = append(errs, fmt.Errorf("server.socket_path is required"))
	}
	if _, err := c.Server.ParseDialTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Bridge.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("bridge.event_buffer must be non-negative"))
	}
	if c.Bridge.MaxValueBytes < 0 {
		errs = append(errs, fmt.Errorf("bridge.max_value_bytes must be non-negative"))
	}
	if _, err := c.Bridge.ParseTimerInterval(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

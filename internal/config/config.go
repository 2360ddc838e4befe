package config

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Default durations and limits applied when a setting is absent.
const (
	DefaultExecutionTimeout = 5 * time.Second
	DefaultCallTimeout      = 10 * time.Second
	DefaultMaxFrameBytes    = 4 << 20
)

// Config is the merged gridstorm configuration.
type Config struct {
	Logging    Logging    `json:"logging" toml:"logging" yaml:"logging"`
	Extensions Extensions `json:"extensions" toml:"extensions" yaml:"extensions"`
	Boundary   Boundary   `json:"boundary" toml:"boundary" yaml:"boundary"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `json:"level" toml:"level" yaml:"level"`
	Development bool   `json:"development" toml:"development" yaml:"development"`
}

// Extensions configures extension discovery and execution.
type Extensions struct {
	Dir string `json:"dir" toml:"dir" yaml:"dir"`

	// ExecutionTimeout bounds each extension script call. Duration string,
	// e.g. "5s".
	ExecutionTimeout string `json:"execution_timeout" toml:"execution_timeout" yaml:"execution_timeout"`
}

// Boundary configures the host/extension transport.
type Boundary struct {
	MaxFrameBytes int `json:"max_frame_bytes" toml:"max_frame_bytes" yaml:"max_frame_bytes"`

	// CallTimeout bounds each cross-boundary call made by the demo binary.
	CallTimeout string `json:"call_timeout" toml:"call_timeout" yaml:"call_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:       "info",
			Development: false,
		},
		Extensions: Extensions{
			Dir:              "extensions",
			ExecutionTimeout: DefaultExecutionTimeout.String(),
		},
		Boundary: Boundary{
			MaxFrameBytes: DefaultMaxFrameBytes,
			CallTimeout:   DefaultCallTimeout.String(),
		},
	}
}

// Validate checks the configuration for unparseable values.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Logging.Level)
	}
	if c.Extensions.ExecutionTimeout != "" {
		if _, err := time.ParseDuration(c.Extensions.ExecutionTimeout); err != nil {
			return fmt.Errorf("%w: extensions.execution_timeout %q", ErrInvalidDuration, c.Extensions.ExecutionTimeout)
		}
	}
	if c.Boundary.CallTimeout != "" {
		if _, err := time.ParseDuration(c.Boundary.CallTimeout); err != nil {
			return fmt.Errorf("%w: boundary.call_timeout %q", ErrInvalidDuration, c.Boundary.CallTimeout)
		}
	}
	if c.Boundary.MaxFrameBytes < 0 {
		return fmt.Errorf("boundary.max_frame_bytes must be non-negative, got %d", c.Boundary.MaxFrameBytes)
	}
	return nil
}

// Timeout returns the parsed execution timeout, falling back to the default
// when unset or unparseable.
func (e Extensions) Timeout() time.Duration {
	if e.ExecutionTimeout == "" {
		return DefaultExecutionTimeout
	}
	d, err := time.ParseDuration(e.ExecutionTimeout)
	if err != nil {
		return DefaultExecutionTimeout
	}
	return d
}

// Timeout returns the parsed call timeout, falling back to the default when
// unset.
func (b Boundary) Timeout() time.Duration {
	if b.CallTimeout == "" {
		return DefaultCallTimeout
	}
	d, err := time.ParseDuration(b.CallTimeout)
	if err != nil {
		return DefaultCallTimeout
	}
	return d
}

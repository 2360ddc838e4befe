package config

import "errors"

// Sentinel errors for configuration loading and watching.
var (
	// ErrUnknownFormat indicates a config file extension that is neither
	// TOML nor YAML.
	ErrUnknownFormat = errors.New("unknown config format")

	// ErrInvalidLevel indicates an unparseable logging level.
	ErrInvalidLevel = errors.New("invalid logging level")

	// ErrInvalidDuration indicates an unparseable duration setting.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Package config loads gridstorm configuration from TOML or YAML files,
// layered under environment overrides, and exposes the merged result both as
// a typed Config and as a path-addressable Document. A file watcher supports
// live reload.
package config

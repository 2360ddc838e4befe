package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "GRIDSTORM_"

// envMapping maps environment variables to document paths.
var envMapping = map[string]string{
	"GRIDSTORM_LOG_LEVEL":             "logging.level",
	"GRIDSTORM_LOG_DEVELOPMENT":       "logging.development",
	"GRIDSTORM_EXTENSIONS_DIR":        "extensions.dir",
	"GRIDSTORM_EXECUTION_TIMEOUT":     "extensions.execution_timeout",
	"GRIDSTORM_BOUNDARY_MAX_FRAME":    "boundary.max_frame_bytes",
	"GRIDSTORM_BOUNDARY_CALL_TIMEOUT": "boundary.call_timeout",
}

// Load reads the config file at path, layers it over the defaults, applies
// environment overrides, and validates the result. A missing file is not an
// error; the defaults plus environment apply. An empty path skips the file
// layer entirely.
func Load(path string) (Config, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := doc.Decode()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDocument builds the merged configuration document: defaults, then the
// file layer, then environment overrides.
func LoadDocument(path string) (*Document, error) {
	merged, err := defaultsMap()
	if err != nil {
		return nil, err
	}

	if path != "" {
		fileLayer, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, fileLayer)
	}

	doc, err := documentFrom(merged)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// defaultsMap renders the built-in configuration as a nested map.
func defaultsMap() (map[string]any, error) {
	data, err := json.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return m, nil
}

// loadFile parses a TOML or YAML config file into a map. A missing file
// yields an empty layer.
func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var layer map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return layer, nil
}

// applyEnv writes mapped environment variables into the document.
func applyEnv(doc *Document) error {
	for env, path := range envMapping {
		val, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		if err := doc.Set(path, parseEnvValue(val)); err != nil {
			return err
		}
	}
	return nil
}

// parseEnvValue interprets bools and integers; everything else stays a
// string. Duration settings stay strings and are parsed at validation.
func parseEnvValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}

// deepMerge recursively merges src into dst. Values in src win; maps merge
// key by key.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				dst[key] = deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
	return dst
}

package config

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is a path-addressable view of the merged configuration, backed by
// JSON. Paths use dot notation, e.g. "logging.level".
type Document struct {
	data []byte
}

// NewDocument wraps raw JSON bytes.
func NewDocument(data []byte) *Document {
	return &Document{data: data}
}

// documentFrom marshals a nested map into a Document.
func documentFrom(m map[string]any) (*Document, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return NewDocument(data), nil
}

// Get returns the value at path.
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.data, path)
}

// GetString returns the string at path, or def when absent.
func (d *Document) GetString(path, def string) string {
	if r := d.Get(path); r.Exists() {
		return r.String()
	}
	return def
}

// GetBool returns the bool at path, or def when absent.
func (d *Document) GetBool(path string, def bool) bool {
	if r := d.Get(path); r.Exists() {
		return r.Bool()
	}
	return def
}

// GetInt returns the integer at path, or def when absent.
func (d *Document) GetInt(path string, def int64) int64 {
	if r := d.Get(path); r.Exists() {
		return r.Int()
	}
	return def
}

// Set writes value at path, creating intermediate objects as needed.
func (d *Document) Set(path string, value any) error {
	data, err := sjson.SetBytes(d.data, path, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	d.data = data
	return nil
}

// Bytes returns the document's JSON form.
func (d *Document) Bytes() []byte {
	return d.data
}

// Decode unmarshals the document into a Config.
func (d *Document) Decode() (Config, error) {
	var cfg Config
	if err := json.Unmarshal(d.data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

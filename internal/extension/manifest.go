package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the manifest name inside an extension directory.
const ManifestFile = "extension.toml"

// Manifest describes an extension's identity and entry point.
type Manifest struct {
	// Identity
	Name        string `toml:"name"`
	Publisher   string `toml:"publisher"`
	Version     string `toml:"version"`
	DisplayName string `toml:"display_name"`
	Description string `toml:"description"`

	// Main is the Lua entry point relative to the extension directory.
	// Defaults to "init.lua".
	Main string `toml:"main"`

	// Resources lists the resource patterns this extension claims to
	// understand. Informational only: dispatch stays fallback-ordered and
	// never routes by pattern.
	Resources []string `toml:"resources"`

	// path is the extension directory, set by LoadManifest.
	path string
}

// segmentPattern validates publisher and name segments.
var segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?$`)

// LoadManifest reads and validates the manifest in the given directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoManifest)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if m.Main == "" {
		m.Main = "init.lua"
	}
	m.path = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest's required fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if m.Publisher == "" {
		return ErrMissingPublisher
	}
	if !segmentPattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, m.Name)
	}
	if !segmentPattern.MatchString(m.Publisher) {
		return fmt.Errorf("%w: publisher %q", ErrInvalidName, m.Publisher)
	}
	if m.Version != "" && !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, m.Version)
	}
	if !strings.HasSuffix(m.Main, ".lua") {
		return fmt.Errorf("%w: %q", ErrInvalidMain, m.Main)
	}
	return nil
}

// Owner returns the boundary owner identity for this extension.
func (m *Manifest) Owner() string {
	return m.Publisher + "." + m.Name
}

// Path returns the extension directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the absolute path of the Lua entry point.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

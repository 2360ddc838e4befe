package extension

import "errors"

// Extension lifecycle errors.
var (
	// ErrNoManifest is returned when a directory holds no extension manifest.
	ErrNoManifest = errors.New("no extension manifest found")

	// ErrMissingName is returned when the manifest has no name.
	ErrMissingName = errors.New("manifest: name is required")

	// ErrMissingPublisher is returned when the manifest has no publisher.
	ErrMissingPublisher = errors.New("manifest: publisher is required")

	// ErrInvalidName is returned when a name segment is not lowercase
	// alphanumeric with inner hyphens.
	ErrInvalidName = errors.New("manifest: invalid name")

	// ErrInvalidVersion is returned when the version is not semver.
	ErrInvalidVersion = errors.New("manifest: version must be valid semver")

	// ErrInvalidMain is returned when the entry point is not a .lua file.
	ErrInvalidMain = errors.New("manifest: main must be a .lua file")

	// ErrAlreadyLoaded is returned when loading an already loaded extension.
	ErrAlreadyLoaded = errors.New("extension is already loaded")

	// ErrNotLoaded is returned when activating an unloaded extension.
	ErrNotLoaded = errors.New("extension is not loaded")

	// ErrNoProviderFunctions is returned when activation expects provider
	// functions the script does not define.
	ErrNoProviderFunctions = errors.New("extension defines no provider functions")
)

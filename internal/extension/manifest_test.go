package extension_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/gridstorm/internal/extension"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, extension.ManifestFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
name = "sheet"
publisher = "demo"
version = "1.0.0"
display_name = "Demo Sheet"
resources = ["*.xlsx"]
`)

	m, err := extension.LoadManifest(dir)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}

	if m.Owner() != "demo.sheet" {
		t.Errorf("expected owner demo.sheet, got %s", m.Owner())
	}
	if m.Main != "init.lua" {
		t.Errorf("expected default main init.lua, got %s", m.Main)
	}
	if m.MainPath() != filepath.Join(dir, "init.lua") {
		t.Errorf("unexpected main path %s", m.MainPath())
	}
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := extension.LoadManifest(t.TempDir())
	if !errors.Is(err, extension.ErrNoManifest) {
		t.Errorf("expected ErrNoManifest, got %v", err)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  error
	}{
		{"missing name", `publisher = "demo"`, extension.ErrMissingName},
		{"missing publisher", `name = "sheet"`, extension.ErrMissingPublisher},
		{"bad name", "name = \"Bad Name\"\npublisher = \"demo\"", extension.ErrInvalidName},
		{"bad publisher", "name = \"sheet\"\npublisher = \"De mo\"", extension.ErrInvalidName},
		{"bad version", "name = \"sheet\"\npublisher = \"demo\"\nversion = \"one\"", extension.ErrInvalidVersion},
		{"bad main", "name = \"sheet\"\npublisher = \"demo\"\nmain = \"init.py\"", extension.ErrInvalidMain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.manifest)

			_, err := extension.LoadManifest(dir)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// Package polyfills ships the JavaScript files the resolver redirects to and
// writes them somewhere the bundler can read them.
package polyfills

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/nodeshim/internal/shims/specifier"
)

//go:embed js/*.js
var sources embed.FS

// Set maps polyfill identifiers to absolute file paths.
type Set struct {
	dir   string
	paths map[specifier.ID]string
}

// Materialize writes the embedded polyfills into dir and returns their
// paths. An empty dir creates a fresh temporary directory. Files whose
// content already matches are left untouched so bundler caches stay warm.
func Materialize(dir string) (*Set, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "nodeshim-polyfills-")
		if err != nil {
			return nil, fmt.Errorf("failed to create polyfill dir: %w", err)
		}
		dir = tmp
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve polyfill dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create polyfill dir: %w", err)
	}

	set := &Set{dir: abs, paths: make(map[specifier.ID]string)}
	entries, err := fs.ReadDir(sources, "js")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		content, err := sources.ReadFile("js/" + name)
		if err != nil {
			return nil, err
		}
		target := filepath.Join(abs, name)
		if err := writeIfChanged(target, content); err != nil {
			return nil, fmt.Errorf("failed to write polyfill %s: %w", name, err)
		}
		id := specifier.ID(name[:len(name)-len(filepath.Ext(name))])
		set.paths[id] = target
	}
	return set, nil
}

// Dir returns the directory holding the polyfill files.
func (s *Set) Dir() string { return s.dir }

// Path returns the absolute path of polyfill id.
func (s *Set) Path(id specifier.ID) (string, bool) {
	p, ok := s.paths[id]
	return p, ok
}

// Source returns the embedded source of polyfill id.
func Source(id specifier.ID) ([]byte, error) {
	return sources.ReadFile("js/" + string(id) + ".js")
}

func writeIfChanged(path string, content []byte) error {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

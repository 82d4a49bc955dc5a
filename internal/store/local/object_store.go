// Package local implements an ObjectStore on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config captures the parameters for the local filesystem object store.
type Config struct {
	// BaseDir is the root directory where fragments will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ObjectStore reads and writes partition fragments under a base directory.
type ObjectStore struct {
	baseDir string
}

// New creates a filesystem-backed object store, creating the base directory
// if needed.
func New(cfg Config) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &ObjectStore{baseDir: cfg.BaseDir}, nil
}

// Put writes data to a file and returns a file:// URI.
func (s *ObjectStore) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}

// Get reads the file at path.
func (s *ObjectStore) Get(_ context.Context, path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// List walks the tree under prefix and returns store-relative paths, sorted.
func (s *ObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var names []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.baseDir, path)
		if relErr != nil {
			return relErr
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, fmt.Errorf("list %s: %w", prefix, walkErr)
	}
	sort.Strings(names)
	return names, nil
}

// resolve joins path under the base directory, refusing traversal outside it.
func (s *ObjectStore) resolve(path string) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	cleanBase := filepath.Clean(s.baseDir)
	if fullPath != cleanBase && !strings.HasPrefix(fullPath, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected in %q", path)
	}
	return fullPath, nil
}

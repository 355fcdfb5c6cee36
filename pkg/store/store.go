// Package store persists per-category version strings, hash manifests and
// diff logs inside a client directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Store reads and writes the durable state of one client directory
type Store struct {
	dir string
}

// New creates a store rooted at a client directory, creating it if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create client directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the client directory
func (s *Store) Dir() string {
	return s.dir
}

// AssetDir returns the directory holding downloaded asset bundles
func (s *Store) AssetDir() string {
	return filepath.Join(s.dir, "AssetBundles")
}

// LoadVersion returns the stored version of a category. ok is false when
// no version file exists yet.
func (s *Store) LoadVersion(category models.Category) (version string, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(s.dir, category.VersionFilename()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read version file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), true, nil
}

// SaveVersion replaces the stored version of a category
func (s *Store) SaveVersion(category models.Category, version string) error {
	if err := writeFileAtomic(filepath.Join(s.dir, category.VersionFilename()), []byte(version)); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}
	return nil
}

// Commit persists the manifest rows and then the version of a category.
// An interruption between the two leaves the old version in place, so the
// next run compares again.
func (s *Store) Commit(category models.Category, version string, rows []models.HashRow) error {
	if err := s.SaveHashes(category, rows); err != nil {
		return err
	}
	return s.SaveVersion(category, version)
}

// writeFileAtomic writes data to a temporary file and renames it over path
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

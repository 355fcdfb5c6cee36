package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

const latestDiffLog = "latest.json"

// DiffLogEntry records the non-trivial outcomes of one run of a category
type DiffLogEntry struct {
	Version      string                        `json:"version"`
	SuccessFiles map[string]models.CompareType `json:"success_files"`
	FailedFiles  map[string]models.CompareType `json:"failed_files"`
}

// NewDiffLogEntry collects downloaded and removed paths as successes and
// failed paths as failures. It returns false when nothing changed.
func NewDiffLogEntry(version string, results []models.UpdateResult) (DiffLogEntry, bool) {
	entry := DiffLogEntry{
		Version:      version,
		SuccessFiles: make(map[string]models.CompareType),
		FailedFiles:  make(map[string]models.CompareType),
	}

	for _, r := range results {
		switch r.Outcome {
		case models.DownloadSuccess, models.DownloadRemoved:
			entry.SuccessFiles[r.Compare.Path()] = r.Compare.Type
		case models.DownloadFailed:
			entry.FailedFiles[r.Compare.Path()] = r.Compare.Type
		}
	}

	return entry, len(entry.SuccessFiles)+len(entry.FailedFiles) > 0
}

// DownloadedPaths returns paths that were newly written in this run
func (e *DiffLogEntry) DownloadedPaths() []string {
	var paths []string
	for p, t := range e.SuccessFiles {
		if t == models.CompareNew || t == models.CompareChanged {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *Store) diffLogDir(category models.Category) string {
	return filepath.Join(s.dir, "difflog", string(category))
}

// WriteDiffLog rotates an existing latest.json to <version>.json and
// writes entry as the new latest.json
func (s *Store) WriteDiffLog(category models.Category, entry DiffLogEntry) error {
	dir := s.diffLogDir(category)
	latestPath := filepath.Join(dir, latestDiffLog)

	previous, err := s.LoadDiffLog(category)
	if err != nil {
		return err
	}
	if previous != nil {
		rotated := filepath.Join(dir, snapshotName(previous.Version))
		if err := os.Rename(latestPath, rotated); err != nil {
			return fmt.Errorf("failed to rotate diff log: %w", err)
		}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diff log: %w", err)
	}
	if err := writeFileAtomic(latestPath, data); err != nil {
		return fmt.Errorf("failed to write diff log: %w", err)
	}
	return nil
}

// LoadDiffLog reads latest.json of a category, nil if there is none
func (s *Store) LoadDiffLog(category models.Category) (*DiffLogEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.diffLogDir(category), latestDiffLog))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read diff log: %w", err)
	}

	var entry DiffLogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse diff log: %w", err)
	}
	return &entry, nil
}

// snapshotName maps a version to a file name inside the diff log directory
func snapshotName(version string) string {
	if version == "" || strings.ContainsAny(version, `/\`) || version == "." || version == ".." {
		version = "unknown"
	}
	return version + ".json"
}

package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

func result(path string, ct models.CompareType, outcome models.DownloadType) models.UpdateResult {
	row := &models.HashRow{Path: path, Size: 1, Hash: "h"}
	cr := models.CompareResult{Type: ct}
	if ct == models.CompareDeleted {
		cr.Current = row
	} else {
		cr.New = row
	}
	return models.UpdateResult{Compare: cr, Outcome: outcome, Path: path}
}

func TestNewDiffLogEntry(t *testing.T) {
	entry, changed := NewDiffLogEntry("7.1.48", []models.UpdateResult{
		result("a", models.CompareNew, models.DownloadSuccess),
		result("b", models.CompareDeleted, models.DownloadRemoved),
		result("c", models.CompareChanged, models.DownloadFailed),
		result("d", models.CompareUnchanged, models.DownloadNoChange),
		result("e", models.CompareNew, models.DownloadSkipped),
	})

	if !changed {
		t.Fatal("NewDiffLogEntry() reported no changes")
	}
	if len(entry.SuccessFiles) != 2 || entry.SuccessFiles["b"] != models.CompareDeleted {
		t.Errorf("SuccessFiles = %v", entry.SuccessFiles)
	}
	if len(entry.FailedFiles) != 1 || entry.FailedFiles["c"] != models.CompareChanged {
		t.Errorf("FailedFiles = %v", entry.FailedFiles)
	}
	if got := entry.DownloadedPaths(); len(got) != 1 || got[0] != "a" {
		t.Errorf("DownloadedPaths() = %v", got)
	}

	_, changed = NewDiffLogEntry("7.1.48", []models.UpdateResult{
		result("d", models.CompareUnchanged, models.DownloadNoChange),
	})
	if changed {
		t.Error("unchanged-only results must not produce a diff log")
	}
}

func TestWriteDiffLogRotation(t *testing.T) {
	s := newTestStore(t)

	first, _ := NewDiffLogEntry("7.1.47", []models.UpdateResult{result("a", models.CompareNew, models.DownloadSuccess)})
	second, _ := NewDiffLogEntry("7.1.48", []models.UpdateResult{result("b", models.CompareNew, models.DownloadSuccess)})

	if err := s.WriteDiffLog(models.CategoryAZL, first); err != nil {
		t.Fatalf("WriteDiffLog() error = %v", err)
	}
	if err := s.WriteDiffLog(models.CategoryAZL, second); err != nil {
		t.Fatalf("WriteDiffLog() error = %v", err)
	}

	dir := filepath.Join(s.Dir(), "difflog", "azl")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "7.1.47.json" || names[1] != "latest.json" {
		t.Errorf("difflog dir = %v, want [7.1.47.json latest.json]", names)
	}

	latest, err := s.LoadDiffLog(models.CategoryAZL)
	if err != nil || latest == nil || latest.Version != "7.1.48" {
		t.Errorf("LoadDiffLog() = %+v, %v", latest, err)
	}
}

func TestLoadDiffLogMissing(t *testing.T) {
	s := newTestStore(t)
	entry, err := s.LoadDiffLog(models.CategoryCV)
	if err != nil || entry != nil {
		t.Errorf("LoadDiffLog() = %v, %v; want nil, nil", entry, err)
	}

	os.MkdirAll(filepath.Join(s.Dir(), "difflog", "cv"), 0755)
	os.WriteFile(filepath.Join(s.Dir(), "difflog", "cv", "latest.json"), []byte("{"), 0644)
	if _, err := s.LoadDiffLog(models.CategoryCV); err == nil || errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadDiffLog() of corrupt file error = %v", err)
	}
}

func TestSnapshotName(t *testing.T) {
	tests := map[string]string{
		"7.1.48": "7.1.48.json",
		"":       "unknown.json",
		"../x":   "unknown.json",
	}
	for in, want := range tests {
		if got := snapshotName(in); got != want {
			t.Errorf("snapshotName(%q) = %q, want %q", in, got, want)
		}
	}
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"

	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
)

// fakeSource serves content by hash and counts calls
type fakeSource struct {
	mu          gosync.Mutex
	content     map[string][]byte
	listings    map[string][]models.HashRow
	fetches     []string
	hashFetches int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		content:  make(map[string][]byte),
		listings: make(map[string][]models.HashRow),
	}
}

func (s *fakeSource) Fetch(ctx context.Context, row models.HashRow) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, row.Path)
	data, ok := s.content[row.Hash]
	if !ok {
		return nil, fmt.Errorf("no content for %s", row.Hash)
	}
	return data, nil
}

func (s *fakeSource) FetchHashes(ctx context.Context, versionHash string) ([]models.HashRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashFetches++
	rows, ok := s.listings[versionHash]
	if !ok {
		return nil, fmt.Errorf("no listing for %s", versionHash)
	}
	return rows, nil
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetches)
}

func newTestDest(t *testing.T) *storage.Local {
	t.Helper()
	dest, err := storage.NewLocal(filepath.Join(t.TempDir(), "AssetBundles"))
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return dest
}

func newTestPipeline(dest storage.Backend, fetcher Fetcher, config PipelineConfig) *Pipeline {
	return NewPipeline(dest, fetcher, nil, logging.NewNullLogger(), config)
}

func row(path string, size uint64, hash string) *models.HashRow {
	return &models.HashRow{Path: path, Size: size, Hash: hash}
}

func outcomes(results []models.UpdateResult) map[string]models.DownloadType {
	m := make(map[string]models.DownloadType, len(results))
	for _, r := range results {
		m[r.Path] = r.Outcome
	}
	return m
}

func TestPipeline_WrongLengthFetch(t *testing.T) {
	dest := newTestDest(t)
	src := newFakeSource()
	src.content["h1"] = []byte("short")

	comparison := map[string]models.CompareResult{
		"char/ship": {New: row("char/ship", 10, "h1"), Type: models.CompareNew},
	}

	results, stats := newTestPipeline(dest, src, DefaultPipelineConfig()).Run(context.Background(), models.CategoryAZL, comparison)

	if got := outcomes(results)["char/ship"]; got != models.DownloadFailed {
		t.Errorf("outcome = %s, want failed", got)
	}
	var mismatch *SizeMismatchError
	if !errors.As(results[0].Err, &mismatch) {
		t.Errorf("error = %v, want SizeMismatchError", results[0].Err)
	}
	if exists, _ := dest.Exists(context.Background(), "char/ship"); exists {
		t.Error("no file may be written on size mismatch")
	}
	if stats.FilesFailed != 1 || stats.FilesNew != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipeline_EmptyFetch(t *testing.T) {
	dest := newTestDest(t)
	src := newFakeSource()
	src.content["h0"] = nil

	comparison := map[string]models.CompareResult{
		"x": {New: row("x", 0, "h0"), Type: models.CompareNew},
	}
	results, _ := newTestPipeline(dest, src, DefaultPipelineConfig()).Run(context.Background(), models.CategoryAZL, comparison)

	if !errors.Is(results[0].Err, ErrEmptyContent) {
		t.Errorf("error = %v, want ErrEmptyContent", results[0].Err)
	}
}

func TestPipeline_Delete(t *testing.T) {
	ctx := context.Background()
	dest := newTestDest(t)
	if err := dest.Write(ctx, "cv/present", strings.NewReader("v"), 1); err != nil {
		t.Fatal(err)
	}

	comparison := map[string]models.CompareResult{
		"cv/present": {Current: row("cv/present", 1, "h"), Type: models.CompareDeleted},
		"cv/absent":  {Current: row("cv/absent", 1, "h"), Type: models.CompareDeleted},
	}

	t.Run("Removes", func(t *testing.T) {
		results, stats := newTestPipeline(dest, newFakeSource(), DefaultPipelineConfig()).Run(ctx, models.CategoryCV, comparison)

		got := outcomes(results)
		for _, p := range []string{"cv/present", "cv/absent"} {
			if got[p] != models.DownloadRemoved {
				t.Errorf("outcome[%s] = %s, want removed", p, got[p])
			}
		}
		if exists, _ := dest.Exists(ctx, "cv/present"); exists {
			t.Error("cv/present still exists")
		}
		if stats.FilesRemoved != 2 {
			t.Errorf("FilesRemoved = %d, want 2", stats.FilesRemoved)
		}
	})

	t.Run("DeletionDisabled", func(t *testing.T) {
		config := DefaultPipelineConfig()
		config.AllowDeletion = false
		results, _ := newTestPipeline(dest, newFakeSource(), config).Run(ctx, models.CategoryCV, comparison)
		for _, r := range results {
			if r.Outcome != models.DownloadSkipped {
				t.Errorf("outcome[%s] = %s, want skipped", r.Path, r.Outcome)
			}
		}
	})
}

func TestPipeline_Filter(t *testing.T) {
	dest := newTestDest(t)
	src := newFakeSource()
	src.content["h1"] = []byte("1")
	src.content["h2"] = []byte("2")

	comparison := map[string]models.CompareResult{
		"char/a":    {New: row("char/a", 1, "h1"), Type: models.CompareNew},
		"painting/b": {Current: row("painting/b", 1, "old"), New: row("painting/b", 1, "h2"), Type: models.CompareChanged},
	}

	config := DefaultPipelineConfig()
	config.Filter = &FolderFilter{Mode: FilterBlacklist, Folders: []string{"painting"}}
	results, stats := newTestPipeline(dest, src, config).Run(context.Background(), models.CategoryAZL, comparison)

	got := outcomes(results)
	if got["char/a"] != models.DownloadSuccess || got["painting/b"] != models.DownloadSkipped {
		t.Errorf("outcomes = %v", got)
	}
	if src.fetchCount() != 1 {
		t.Errorf("fetches = %d, want 1", src.fetchCount())
	}
	if stats.FilesSkipped != 1 || stats.FilesDownloaded != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rows := FilterHashes(results)
	if len(rows) != 2 || rows[1].Hash != "old" {
		t.Errorf("FilterHashes() = %+v, want filtered asset to keep its current row", rows)
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	dest := newTestDest(t)
	src := newFakeSource()
	comparison := make(map[string]models.CompareResult)
	for i := 0; i < 20; i++ {
		p := fmt.Sprintf("asset_%02d", i)
		src.content[p] = []byte("x")
		comparison[p] = models.CompareResult{New: row(p, 1, p), Type: models.CompareNew}
	}
	comparison["kept"] = models.CompareResult{Current: row("kept", 1, "k"), New: row("kept", 1, "k"), Type: models.CompareUnchanged}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, stats := newTestPipeline(dest, src, DefaultPipelineConfig()).Run(ctx, models.CategoryAZL, comparison)

	if len(results) != 21 {
		t.Fatalf("got %d results, want one per path", len(results))
	}
	if stats.FilesFailed != 20 || stats.FilesUnchanged != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if src.fetchCount() != 0 {
		t.Errorf("fetches = %d after cancellation", src.fetchCount())
	}
}

func TestPipeline_ResultsSortedAndHooked(t *testing.T) {
	dest := newTestDest(t)
	src := newFakeSource()
	comparison := make(map[string]models.CompareResult)
	for _, p := range []string{"c", "a", "b"} {
		src.content["h"+p] = []byte(p)
		comparison[p] = models.CompareResult{New: row(p, 1, "h"+p), Type: models.CompareNew}
	}

	hook := &recordingHook{fail: "b"}
	pipeline := newTestPipeline(dest, src, PipelineConfig{MaxWorkers: 3})
	pipeline.AddHook(hook)
	results, _ := pipeline.Run(context.Background(), models.CategoryPainting, comparison)

	for i, want := range []string{"a", "b", "c"} {
		if results[i].Path != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Path, want)
		}
		if results[i].Outcome != models.DownloadSuccess {
			t.Errorf("hook error changed outcome of %s to %s", want, results[i].Outcome)
		}
	}
	if len(hook.paths()) != 3 {
		t.Errorf("hook called %d times, want 3", len(hook.paths()))
	}

	data, err := os.ReadFile(filepath.Join(dest.Root(), "b"))
	if err != nil || string(data) != "b" {
		t.Errorf("content of b = %q, %v", data, err)
	}
}

type recordingHook struct {
	mu    gosync.Mutex
	fail  string
	calls []string
}

func (h *recordingHook) AfterDownload(ctx context.Context, category models.Category, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, path)
	if path == h.fail {
		return errors.New("hook failed")
	}
	return nil
}

func (h *recordingHook) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func TestFilterHashes(t *testing.T) {
	cur := row("p", 1, "old")
	next := row("p", 2, "new")

	tests := []struct {
		name    string
		result  models.UpdateResult
		want    string
		omitted bool
	}{
		{"Success", models.UpdateResult{Compare: models.CompareResult{Current: cur, New: next}, Outcome: models.DownloadSuccess}, "new", false},
		{"NoChange", models.UpdateResult{Compare: models.CompareResult{Current: next, New: next}, Outcome: models.DownloadNoChange}, "new", false},
		{"FailedChanged", models.UpdateResult{Compare: models.CompareResult{Current: cur, New: next}, Outcome: models.DownloadFailed}, "old", false},
		{"FailedNew", models.UpdateResult{Compare: models.CompareResult{New: next}, Outcome: models.DownloadFailed}, "", true},
		{"Removed", models.UpdateResult{Compare: models.CompareResult{Current: cur}, Outcome: models.DownloadRemoved}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := FilterHashes([]models.UpdateResult{tt.result})
			if tt.omitted {
				if len(rows) != 0 {
					t.Errorf("FilterHashes() = %+v, want no rows", rows)
				}
				return
			}
			if len(rows) != 1 || rows[0].Hash != tt.want {
				t.Errorf("FilterHashes() = %+v, want hash %s", rows, tt.want)
			}
		})
	}
}

func TestFolderFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *FolderFilter
		path   string
		want   bool
	}{
		{"NilAllows", nil, "painting/x", true},
		{"BlacklistMatch", &FolderFilter{Mode: FilterBlacklist, Folders: []string{"painting"}}, "painting/x", false},
		{"BlacklistOther", &FolderFilter{Mode: FilterBlacklist, Folders: []string{"painting"}}, "char/x", true},
		{"BlacklistNested", &FolderFilter{Mode: FilterBlacklist, Folders: []string{"x"}}, "painting/x", true},
		{"WhitelistMatch", &FolderFilter{Mode: FilterWhitelist, Folders: []string{"painting/"}}, "painting/x", true},
		{"WhitelistOther", &FolderFilter{Mode: FilterWhitelist, Folders: []string{"painting"}}, "char/x", false},
		{"TopLevelFile", &FolderFilter{Mode: FilterBlacklist, Folders: []string{"dependencies"}}, "dependencies", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Allow(tt.path); got != tt.want {
				t.Errorf("Allow(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if _, err := NewFolderFilter("greylist", nil); err == nil {
		t.Error("NewFolderFilter(greylist) should fail")
	}
}

func TestTally(t *testing.T) {
	results := []models.UpdateResult{
		{Compare: models.CompareResult{Type: models.CompareNew}, Outcome: models.DownloadSuccess, Bytes: 10},
		{Compare: models.CompareResult{Type: models.CompareChanged}, Outcome: models.DownloadFailed},
		{Compare: models.CompareResult{Type: models.CompareDeleted}, Outcome: models.DownloadRemoved},
		{Compare: models.CompareResult{Type: models.CompareUnchanged}, Outcome: models.DownloadNoChange},
	}
	s := Tally(results)
	want := models.Statistics{
		FilesNew: 1, FilesChanged: 1, FilesDeleted: 1, FilesUnchanged: 1,
		FilesDownloaded: 1, FilesRemoved: 1, FilesFailed: 1,
		BytesTransferred: 10,
	}
	if s != want {
		t.Errorf("Tally() = %+v, want %+v", s, want)
	}
	if s.Changes() != 3 {
		t.Errorf("Changes() = %d, want 3", s.Changes())
	}
}

package compare

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
)

func manifest(rows ...models.HashRow) models.Manifest {
	return models.NewManifest(rows)
}

func TestHashes(t *testing.T) {
	a := models.HashRow{Path: "a.png", Size: 10, Hash: "h1"}
	b := models.HashRow{Path: "b.png", Size: 20, Hash: "h2"}
	bChanged := models.HashRow{Path: "b.png", Size: 20, Hash: "h3"}
	bResized := models.HashRow{Path: "b.png", Size: 21, Hash: "h2"}

	tests := []struct {
		name string
		old  models.Manifest
		new  models.Manifest
		want map[string]models.CompareType
	}{
		{
			name: "Identical",
			old:  manifest(a, b),
			new:  manifest(a, b),
			want: map[string]models.CompareType{"a.png": models.CompareUnchanged, "b.png": models.CompareUnchanged},
		},
		{
			name: "Disjoint",
			old:  manifest(a),
			new:  manifest(b),
			want: map[string]models.CompareType{"a.png": models.CompareDeleted, "b.png": models.CompareNew},
		},
		{
			name: "EmptyOld",
			old:  manifest(),
			new:  manifest(a, b),
			want: map[string]models.CompareType{"a.png": models.CompareNew, "b.png": models.CompareNew},
		},
		{
			name: "EmptyNew",
			old:  manifest(a, b),
			new:  nil,
			want: map[string]models.CompareType{"a.png": models.CompareDeleted, "b.png": models.CompareDeleted},
		},
		{
			name: "HashChanged",
			old:  manifest(a, b),
			new:  manifest(a, bChanged),
			want: map[string]models.CompareType{"a.png": models.CompareUnchanged, "b.png": models.CompareChanged},
		},
		{
			name: "SizeChanged",
			old:  manifest(b),
			new:  manifest(bResized),
			want: map[string]models.CompareType{"b.png": models.CompareChanged},
		},
		{
			name: "Added",
			old:  manifest(a),
			new:  manifest(a, b),
			want: map[string]models.CompareType{"a.png": models.CompareUnchanged, "b.png": models.CompareNew},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hashes(tt.old, tt.new)
			if len(got) != len(tt.want) {
				t.Fatalf("Hashes() returned %d entries, want %d", len(got), len(tt.want))
			}
			for path, wantType := range tt.want {
				cr, ok := got[path]
				if !ok {
					t.Errorf("missing entry for %s", path)
					continue
				}
				if cr.Type != wantType {
					t.Errorf("%s: type = %s, want %s", path, cr.Type, wantType)
				}
				if cr.Path() != path {
					t.Errorf("%s: Path() = %s", path, cr.Path())
				}
			}
		})
	}
}

func TestHashesRows(t *testing.T) {
	cur := models.HashRow{Path: "x", Size: 1, Hash: "old"}
	next := models.HashRow{Path: "x", Size: 1, Hash: "new"}

	got := Hashes(manifest(cur), manifest(next))["x"]
	if got.Current == nil || got.Current.Hash != "old" {
		t.Errorf("Current = %+v, want old row", got.Current)
	}
	if got.New == nil || got.New.Hash != "new" {
		t.Errorf("New = %+v, want new row", got.New)
	}

	deleted := Hashes(manifest(cur), nil)["x"]
	if deleted.New != nil {
		t.Errorf("deleted entry has a new row: %+v", deleted.New)
	}
	added := Hashes(nil, manifest(next))["x"]
	if added.Current != nil {
		t.Errorf("new entry has a current row: %+v", added.Current)
	}
}

func TestSortedPathsAndSummary(t *testing.T) {
	old := manifest(
		models.HashRow{Path: "c", Size: 1, Hash: "1"},
		models.HashRow{Path: "a", Size: 1, Hash: "1"},
		models.HashRow{Path: "d", Size: 1, Hash: "1"},
	)
	next := manifest(
		models.HashRow{Path: "a", Size: 1, Hash: "1"},
		models.HashRow{Path: "b", Size: 1, Hash: "1"},
		models.HashRow{Path: "c", Size: 1, Hash: "2"},
	)
	results := Hashes(old, next)

	if got := strings.Join(SortedPaths(results), ","); got != "a,b,c,d" {
		t.Errorf("SortedPaths() = %s", got)
	}

	s := Summarize(results)
	want := Summary{New: 1, Changed: 1, Unchanged: 1, Deleted: 1}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}
	if s.Pending() != 3 {
		t.Errorf("Pending() = %d, want 3", s.Pending())
	}
}

func TestMD5Hasher(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewLocal(filepath.Join(t.TempDir(), "assets"))
	if err != nil {
		t.Fatal(err)
	}
	content := strings.Repeat("azur lane ", 2000)
	if err := backend.Write(ctx, "char/ship", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatal(err)
	}

	hasher := NewMD5Hasher(1024)

	t.Run("MatchesBytes", func(t *testing.T) {
		hash, size, err := hasher.HashFile(ctx, backend, "char/ship")
		if err != nil {
			t.Fatalf("HashFile() error = %v", err)
		}
		if size != int64(len(content)) {
			t.Errorf("size = %d, want %d", size, len(content))
		}
		if hash != MD5Bytes([]byte(content)) {
			t.Errorf("hash = %s, want %s", hash, MD5Bytes([]byte(content)))
		}
	})

	t.Run("KnownDigest", func(t *testing.T) {
		if got := MD5Bytes([]byte("")); got != "d41d8cd98f00b204e9800998ecf8427e" {
			t.Errorf("MD5Bytes(\"\") = %s", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, _, err := hasher.HashFile(ctx, backend, "nope"); err == nil {
			t.Error("HashFile() of missing file should fail")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, _, err := hasher.HashFile(cctx, backend, "char/ship"); err == nil {
			t.Error("HashFile() should fail on a cancelled context")
		}
	})
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/compare"
	"github.com/nobbyfix/AzurLaneTools/pkg/history"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
)

// newRoot builds a fresh command tree; defining the flags again resets
// the package-level flag values.
func newRoot(out *bytes.Buffer) *cobra.Command {
	root := &cobra.Command{Use: "alassets", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(
		NewUpdateCommand(),
		NewRepairCommand(),
		NewExtractCommand(),
		NewHistoryCommand(),
		NewConfigCommand(),
	)
	root.SetOut(out)
	root.SetErr(out)
	return root
}

type cdnFixture struct {
	dir     string
	config  string
	content map[string]string // hash -> body
}

func newCDNFixture(t *testing.T, files map[string]string) *cdnFixture {
	t.Helper()
	f := &cdnFixture{dir: t.TempDir(), content: make(map[string]string)}

	var listing []string
	for path, body := range files {
		hash := compare.MD5Bytes([]byte(body))
		f.content[hash] = body
		listing = append(listing, fmt.Sprintf("%s,%d,%s", path, len(body), hash))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/android/hash/vh1":
			w.Write([]byte(strings.Join(listing, "\n")))
		case strings.HasPrefix(r.URL.Path, "/android/resource/"):
			body, ok := f.content[strings.TrimPrefix(r.URL.Path, "/android/resource/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	yaml := fmt.Sprintf(`paths:
  asset_directory: %s
  extract_directory: %s
  export_directory: %s
extract:
  filter_mode: blacklist
  folders: [char]
logging:
  level: error
output:
  format: human
clients:
  EN:
    cdn_url: %s
`,
		filepath.Join(f.dir, "assets"),
		filepath.Join(f.dir, "extract"),
		filepath.Join(f.dir, "export"),
		srv.URL,
	)
	f.config = filepath.Join(f.dir, "config.yaml")
	if err := os.WriteFile(f.config, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *cdnFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRoot(&out)
	root.SetArgs(append([]string{"--config", f.config, "--quiet"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUpdateCommand(t *testing.T) {
	f := newCDNFixture(t, map[string]string{
		"a.png":          "abc",
		"painting/b_tex": "defg",
	})

	if _, err := f.run(t, "update", "EN", "--version-string", "$azhash$7$1$48$vh1"); err != nil {
		t.Fatalf("update error = %v", err)
	}

	clientDir := filepath.Join(f.dir, "assets", "EN")
	data, err := os.ReadFile(filepath.Join(clientDir, "AssetBundles", "painting", "b_tex"))
	if err != nil || string(data) != "defg" {
		t.Errorf("painting/b_tex = %q, %v", data, err)
	}

	st, err := store.New(clientDir)
	if err != nil {
		t.Fatal(err)
	}
	version, ok, err := st.LoadVersion(models.CategoryAZL)
	if err != nil || !ok || version != "7.1.48" {
		t.Errorf("LoadVersion() = %q, %v, %v", version, ok, err)
	}

	t.Run("UnchangedVersion", func(t *testing.T) {
		if _, err := f.run(t, "update", "EN", "--version-string", "$azhash$7$1$48$vh1"); err != nil {
			t.Errorf("second update error = %v", err)
		}
	})

	t.Run("History", func(t *testing.T) {
		out, err := f.run(t, "history", "EN")
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(out, "azl") || !strings.Contains(out, "7.1.48") {
			t.Errorf("history output missing run:\n%s", out)
		}
	})

	t.Run("UpdateWithRepair", func(t *testing.T) {
		os.Remove(filepath.Join(clientDir, "AssetBundles", "painting", "b_tex"))
		if _, err := f.run(t, "update", "EN", "--repair", "--force-refresh", "--version-string", "$azhash$7$1$48$vh1"); err != nil {
			t.Fatalf("update --repair error = %v", err)
		}
		if data, err := os.ReadFile(filepath.Join(clientDir, "AssetBundles", "painting", "b_tex")); err != nil || string(data) != "defg" {
			t.Errorf("painting/b_tex after repair = %q, %v", data, err)
		}

		ledger, err := history.Open(filepath.Join(f.dir, "assets", "history.db"))
		if err != nil {
			t.Fatal(err)
		}
		defer ledger.Close()
		runs, err := ledger.List(context.Background(), models.ClientEN, 2)
		if err != nil || len(runs) != 2 {
			t.Fatalf("List() = %d runs, %v", len(runs), err)
		}
		if runs[0].Source != "cdn" || runs[1].Source != "repair" {
			t.Errorf("sources = %s, %s, want the update recorded after the repair", runs[0].Source, runs[1].Source)
		}
	})

	t.Run("Repair", func(t *testing.T) {
		os.Remove(filepath.Join(clientDir, "AssetBundles", "a.png"))
		if _, err := f.run(t, "repair", "EN"); err != nil {
			t.Fatalf("repair error = %v", err)
		}
		if data, err := os.ReadFile(filepath.Join(clientDir, "AssetBundles", "a.png")); err != nil || string(data) != "abc" {
			t.Errorf("a.png after repair = %q, %v", data, err)
		}
	})
}

func TestUpdateCommandFailures(t *testing.T) {
	f := newCDNFixture(t, map[string]string{"a.png": "abc"})

	t.Run("UnknownHash", func(t *testing.T) {
		_, err := f.run(t, "update", "EN", "--version-string", "$azhash$7$1$48$missing")
		var exitErr *ExitCodeError
		if !errors.As(err, &exitErr) || exitErr.Status != models.StatusFailed {
			t.Errorf("error = %v, want ExitCodeError with status failed", err)
		}
	})

	t.Run("UnconfiguredClient", func(t *testing.T) {
		if _, err := f.run(t, "update", "JP", "--version-string", "$azhash$7$1$48$vh1"); err == nil {
			t.Error("update of an unconfigured client should fail")
		}
	})

	t.Run("NoGateServer", func(t *testing.T) {
		if _, err := f.run(t, "update", "EN"); err == nil {
			t.Error("update without gate server or version string should fail")
		}
	})

	t.Run("UnknownClient", func(t *testing.T) {
		if _, err := f.run(t, "update", "DE"); err == nil {
			t.Error("update of an unknown client should fail")
		}
	})
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alassets", "config.yaml")
	f := &cdnFixture{config: path}

	if _, err := f.run(t, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if _, err := f.run(t, "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite")
	}
	if _, err := f.run(t, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestParseCategories(t *testing.T) {
	got, err := parseCategories([]string{"azl,cv", "painting"})
	if err != nil {
		t.Fatalf("parseCategories() error = %v", err)
	}
	want := []models.Category{models.CategoryAZL, models.CategoryCV, models.CategoryPainting}
	if len(got) != len(want) {
		t.Fatalf("parseCategories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("category %d = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := parseCategories([]string{"video"}); err == nil {
		t.Error("parseCategories() should reject unknown categories")
	}
}

func writeExportedTexture(t *testing.T, root, bundle, name string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(bundle))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, name+".png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestExtractCommand(t *testing.T) {
	f := newCDNFixture(t, nil)

	st, err := store.New(filepath.Join(f.dir, "assets", "EN"))
	if err != nil {
		t.Fatal(err)
	}
	logs := map[models.Category]map[string]models.CompareType{
		models.CategoryAZL: {
			"loadingbg/bg_1": models.CompareNew,
			"char/ship":      models.CompareChanged,
			"sharecfg/old":   models.CompareDeleted,
		},
		models.CategoryManga: {
			"manga/page_1": models.CompareChanged,
		},
		models.CategoryCV: {
			"cue/voice": models.CompareNew,
		},
	}
	for category, files := range logs {
		entry := store.DiffLogEntry{Version: "1", SuccessFiles: files, FailedFiles: map[string]models.CompareType{}}
		if err := st.WriteDiffLog(category, entry); err != nil {
			t.Fatal(err)
		}
	}

	exportRoot := filepath.Join(f.dir, "export", "EN")
	writeExportedTexture(t, exportRoot, "loadingbg/bg_1", "bg_1")
	writeExportedTexture(t, exportRoot, "manga/page_1", "page_1")

	if _, err := f.run(t, "extract", "EN"); err != nil {
		t.Fatalf("extract error = %v", err)
	}

	extractRoot := filepath.Join(f.dir, "extract", "EN")
	for _, want := range []string{"loadingbg/bg_1.png", "manga/page_1.png"} {
		if _, err := os.Stat(filepath.Join(extractRoot, filepath.FromSlash(want))); err != nil {
			t.Errorf("%s not extracted: %v", want, err)
		}
	}
	for _, absent := range []string{"char", "cue", "sharecfg"} {
		if _, err := os.Stat(filepath.Join(extractRoot, absent)); !os.IsNotExist(err) {
			t.Errorf("%s should not be extracted", absent)
		}
	}
}

func TestDownloadedTextures(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "EN"))
	if err != nil {
		t.Fatal(err)
	}

	paths, err := downloadedTextures(st)
	if err != nil || len(paths) != 0 {
		t.Fatalf("downloadedTextures() = %v, %v, want nothing", paths, err)
	}

	for _, category := range []models.Category{models.CategoryPainting, models.CategoryPIC} {
		files := map[string]models.CompareType{"painting/shared_tex": models.CompareNew}
		files["pic/"+string(category)] = models.CompareNew
		files["pic/removed"] = models.CompareDeleted
		entry := store.DiffLogEntry{Version: "1", SuccessFiles: files}
		if err := st.WriteDiffLog(category, entry); err != nil {
			t.Fatal(err)
		}
	}

	paths, err = downloadedTextures(st)
	if err != nil {
		t.Fatalf("downloadedTextures() error = %v", err)
	}
	want := []string{"painting/shared_tex", "pic/painting", "pic/pic"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("downloadedTextures() = %v, want %v", paths, want)
	}
}

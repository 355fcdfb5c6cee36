package cdn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig(srv.URL + "/")
	cfg.UserAgent = "alassets-test"
	return New(cfg)
}

func TestFetchHashes(t *testing.T) {
	var gotUA, gotPath string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.Write([]byte("a.png,10,h1\nb.png,20,h2"))
	})

	rows, err := client.FetchHashes(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FetchHashes() error = %v", err)
	}
	if gotPath != "/android/hash/abc123" {
		t.Errorf("path = %s", gotPath)
	}
	if gotUA != "alassets-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(rows) != 2 || rows[1].Size != 20 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestFetch(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/android/resource/") {
		case "good":
			w.Write([]byte("0123456789"))
		case "empty":
		case "huge":
			w.Write([]byte(strings.Repeat("x", 1000)))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		data, err := client.Fetch(ctx, models.HashRow{Path: "a", Size: 10, Hash: "good"})
		if err != nil || string(data) != "0123456789" {
			t.Errorf("Fetch() = %q, %v", data, err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := client.Fetch(ctx, models.HashRow{Path: "a", Size: 10, Hash: "empty"})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("Fetch() error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := client.Fetch(ctx, models.HashRow{Path: "a", Size: 10, Hash: "missing"})
		var serr *StatusError
		if !errors.As(err, &serr) || serr.StatusCode != http.StatusNotFound {
			t.Errorf("Fetch() error = %v, want 404 StatusError", err)
		}
	})

	t.Run("OversizedBodyIsTruncatedToSizePlusOne", func(t *testing.T) {
		data, err := client.Fetch(ctx, models.HashRow{Path: "a", Size: 10, Hash: "huge"})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(data) != 11 {
			t.Errorf("len = %d, want 11", len(data))
		}
	})
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.AssetTimeout = 50 * time.Millisecond
	client := New(cfg)

	_, err := client.Fetch(context.Background(), models.HashRow{Path: "a", Size: 1, Hash: "slow"})
	if err == nil {
		t.Fatal("Fetch() should time out")
	}
}

func TestRequestLimiter(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	})
	cfg := client.config
	cfg.RequestsPerSecond = 20
	limited := New(cfg)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := limited.Fetch(context.Background(), models.HashRow{Size: 1, Hash: "x"}); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	// burst 1 at 20/s: four waits of ~50ms
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("5 requests took %v, expected request limiting", elapsed)
	}
}

// Package cdn downloads hash listings and asset bundles from the game CDN.
package cdn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/ratelimit"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
)

// ErrEmptyResponse is returned when the CDN answers with an empty body
var ErrEmptyResponse = errors.New("empty response")

// StatusError is returned for non-200 responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Config holds CDN client settings
type Config struct {
	BaseURL   string
	UserAgent string

	// HashTimeout bounds a hash listing request
	HashTimeout time.Duration
	// AssetTimeout bounds a single asset download
	AssetTimeout time.Duration

	// RequestsPerSecond limits request starts, 0 = unlimited
	RequestsPerSecond float64
	// BandwidthLimit limits body bytes per second, 0 = unlimited
	BandwidthLimit int64

	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

// DefaultConfig returns the default timeouts for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		HashTimeout:  30 * time.Second,
		AssetTimeout: 20 * time.Second,
	}
}

// Client talks to one CDN. It is safe for concurrent use.
type Client struct {
	config    Config
	http      *http.Client
	requests  *rate.Limiter
	bandwidth *ratelimit.Limiter
}

// New creates a CDN client
func New(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if config.HashTimeout <= 0 {
		config.HashTimeout = 30 * time.Second
	}
	if config.AssetTimeout <= 0 {
		config.AssetTimeout = 20 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config:    config,
		http:      httpClient,
		bandwidth: ratelimit.NewLimiter(config.BandwidthLimit),
	}
	if config.RequestsPerSecond > 0 {
		c.requests = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return c
}

// FetchHashes downloads and parses the hash listing for a version hash
func (c *Client) FetchHashes(ctx context.Context, versionHash string) ([]models.HashRow, error) {
	body, err := c.get(ctx, "/android/hash/"+versionHash, c.config.HashTimeout, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to download hashes: %w", err)
	}

	rows, err := store.ParseHashes(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hashes: %w", err)
	}
	return rows, nil
}

// Fetch downloads the asset bundle of row, keyed by its hash. At most
// row.Size+1 bytes are read so oversized bodies are detectable without
// buffering them completely.
func (c *Client) Fetch(ctx context.Context, row models.HashRow) ([]byte, error) {
	return c.get(ctx, "/android/resource/"+row.Hash, c.config.AssetTimeout, int64(row.Size)+1)
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration, limit int64) ([]byte, error) {
	if c.requests != nil {
		if err := c.requests.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	rc := ratelimit.NewReadCloser(ctx, resp.Body, c.bandwidth)
	defer rc.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var body io.Reader = rc
	if limit >= 0 {
		body = io.LimitReader(body, limit)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	return data, nil
}

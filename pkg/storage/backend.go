package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidPath is returned for paths that would escape the backend root
var ErrInvalidPath = errors.New("path escapes storage root")

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	RelativePath string // slash-separated, relative to the root
}

// Backend defines the storage operations used on an asset tree.
// Paths are slash-separated and relative to the backend root.
type Backend interface {
	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write atomically creates or replaces a file with exactly size bytes
	// from reader, creating parent directories as needed
	Write(ctx context.Context, path string, reader io.Reader, size int64) error

	// Delete removes a file. A missing file yields an error wrapping
	// fs.ErrNotExist.
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases any resources held by the backend
	Close() error
}

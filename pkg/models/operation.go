package models

import (
	"time"
)

// DownloadType is what the sync run actually did for one path
type DownloadType string

const (
	// DownloadSuccess indicates the asset was fetched, verified and written
	DownloadSuccess DownloadType = "success"
	// DownloadFailed indicates the fetch failed or the size check rejected it
	DownloadFailed DownloadType = "failed"
	// DownloadRemoved indicates the asset was deleted (or already absent)
	DownloadRemoved DownloadType = "removed"
	// DownloadNoChange indicates an unchanged asset that was passed through
	DownloadNoChange DownloadType = "nochange"
	// DownloadSkipped indicates the asset was excluded by the download filter
	DownloadSkipped DownloadType = "skipped"
)

// UpdateResult records the outcome for one path of a comparison
type UpdateResult struct {
	Compare  CompareResult
	Outcome  DownloadType
	Path     string
	Bytes    int64
	Err      error
	Duration time.Duration
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

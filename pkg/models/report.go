package models

import (
	"time"
)

// SyncReport summarizes a run over one or more categories of a client
type SyncReport struct {
	RunID  string
	Client Client
	Source string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Categories []CategoryReport

	Status SyncStatus
}

// CategoryReport summarizes one category of a run
type CategoryReport struct {
	Category    Category
	OldVersion  string
	NewVersion  string
	Skipped     bool
	SkipReason  string
	Stats       Statistics
	FailedPaths []string
	Err         error
	Duration    time.Duration
}

// Statistics holds per-category outcome counts
type Statistics struct {
	FilesNew       int
	FilesChanged   int
	FilesDeleted   int
	FilesUnchanged int

	FilesDownloaded int
	FilesRemoved    int
	FilesFailed     int
	FilesSkipped    int

	BytesTransferred int64
}

// Add accumulates s2 into s
func (s *Statistics) Add(s2 Statistics) {
	s.FilesNew += s2.FilesNew
	s.FilesChanged += s2.FilesChanged
	s.FilesDeleted += s2.FilesDeleted
	s.FilesUnchanged += s2.FilesUnchanged
	s.FilesDownloaded += s2.FilesDownloaded
	s.FilesRemoved += s2.FilesRemoved
	s.FilesFailed += s2.FilesFailed
	s.FilesSkipped += s2.FilesSkipped
	s.BytesTransferred += s2.BytesTransferred
}

// Changes is the number of outcomes other than NoChange and Skipped
func (s Statistics) Changes() int {
	return s.FilesDownloaded + s.FilesRemoved + s.FilesFailed
}

// Totals sums the statistics of every category
func (r *SyncReport) Totals() Statistics {
	var total Statistics
	for _, c := range r.Categories {
		total.Add(c.Stats)
	}
	return total
}

// Finish sets timing and derives the status from category errors.
// Individual asset failures do not affect the status.
func (r *SyncReport) Finish(cancelled bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	if cancelled {
		r.Status = StatusCancelled
		return
	}

	failed := 0
	for _, c := range r.Categories {
		if c.Err != nil {
			failed++
		}
	}
	switch {
	case failed == 0:
		r.Status = StatusSuccess
	case failed == len(r.Categories):
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates every category completed
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some categories failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates every category failed
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the run was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

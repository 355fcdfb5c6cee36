package models

import "time"

// RunRecord is the durable summary of one category run, as kept by the
// history ledger
type RunRecord struct {
	RunID      string
	Client     Client
	Category   Category
	Source     string
	OldVersion string
	NewVersion string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Stats      Statistics
	Results    []UpdateResult
}

package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// JSONFormatter writes a single JSON report for automation and scripting
type JSONFormatter struct {
	writer io.Writer
	mu     sync.Mutex
	errors []JSONErrorData
}

// JSONReportData represents the final report
type JSONReportData struct {
	RunID      string             `json:"run_id"`
	Client     string             `json:"client"`
	Source     string             `json:"source,omitempty"`
	Status     string             `json:"status"`
	ExitCode   int                `json:"exit_code"`
	StartTime  time.Time          `json:"start_time"`
	Duration   string             `json:"duration"`
	DurationMs int64              `json:"duration_ms"`
	Categories []JSONCategoryData `json:"categories"`
	Errors     []JSONErrorData    `json:"errors,omitempty"`
}

// JSONCategoryData represents one category of the report
type JSONCategoryData struct {
	Category    string        `json:"category"`
	OldVersion  string        `json:"old_version,omitempty"`
	NewVersion  string        `json:"new_version,omitempty"`
	Skipped     bool          `json:"skipped,omitempty"`
	SkipReason  string        `json:"skip_reason,omitempty"`
	Error       string        `json:"error,omitempty"`
	Stats       JSONStatsData `json:"stats"`
	FailedPaths []string      `json:"failed_paths,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	New              int   `json:"new"`
	Changed          int   `json:"changed"`
	Deleted          int   `json:"deleted"`
	Unchanged        int   `json:"unchanged"`
	Downloaded       int   `json:"downloaded"`
	Removed          int   `json:"removed"`
	Failed           int   `json:"failed"`
	Skipped          int   `json:"skipped"`
	BytesTransferred int64 `json:"bytes_transferred"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Category string `json:"category,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	if writer == nil {
		writer = os.Stdout
	}
	return &JSONFormatter{writer: writer}
}

// Start does nothing; the report is written on Complete
func (f *JSONFormatter) Start(category models.Category, totalFiles int, totalBytes int64, maxWorkers int) error {
	return nil
}

// Progress records asset errors for the report
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	if update.Type != UpdateFileError {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := ""
	if update.Error != nil {
		msg = update.Error.Error()
	}
	f.errors = append(f.errors, JSONErrorData{Category: string(update.Category), Path: update.FilePath, Error: msg})
	return nil
}

// Complete writes the JSON report
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := JSONReportData{
		RunID:      report.RunID,
		Client:     string(report.Client),
		Source:     report.Source,
		Status:     string(report.Status),
		ExitCode:   report.Status.ExitCode(),
		StartTime:  report.StartTime,
		Duration:   report.Duration.String(),
		DurationMs: report.Duration.Milliseconds(),
		Categories: make([]JSONCategoryData, 0, len(report.Categories)),
		Errors:     f.errors,
	}

	for _, c := range report.Categories {
		cd := JSONCategoryData{
			Category:    string(c.Category),
			OldVersion:  c.OldVersion,
			NewVersion:  c.NewVersion,
			Skipped:     c.Skipped,
			SkipReason:  c.SkipReason,
			FailedPaths: c.FailedPaths,
			Stats: JSONStatsData{
				New:              c.Stats.FilesNew,
				Changed:          c.Stats.FilesChanged,
				Deleted:          c.Stats.FilesDeleted,
				Unchanged:        c.Stats.FilesUnchanged,
				Downloaded:       c.Stats.FilesDownloaded,
				Removed:          c.Stats.FilesRemoved,
				Failed:           c.Stats.FilesFailed,
				Skipped:          c.Stats.FilesSkipped,
				BytesTransferred: c.Stats.BytesTransferred,
			},
		}
		if c.Err != nil {
			cd.Error = c.Err.Error()
		}
		data.Categories = append(data.Categories, cd)
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error records an error for the report
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, JSONErrorData{Error: err.Error()})
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

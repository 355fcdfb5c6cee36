package output

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Progress update types
const (
	UpdateFileStart    = "file_start"
	UpdateFileComplete = "file_complete"
	UpdateFileRemoved  = "file_removed"
	UpdateFileError    = "file_error"
)

// ProgressUpdate represents a progress notification during a category run
type ProgressUpdate struct {
	Type         string
	Category     models.Category
	FilePath     string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for output formatting.
// Progress may be called concurrently by several workers.
type Formatter interface {
	// Start announces the pending work of one category
	Start(category models.Category, totalFiles int, totalBytes int64, maxWorkers int) error

	// Progress reports progress of a single asset
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the run summary
	Complete(report *models.SyncReport) error

	// Error reports an error outside of a single asset
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New picks a formatter by name. "progress" falls back to human output
// when w is not a terminal.
func New(name string, w io.Writer, verbose bool) Formatter {
	switch name {
	case "json":
		return NewJSONFormatter(w)
	case "progress":
		if IsTerminal(w) {
			return NewProgressFormatter(w)
		}
		return NewHumanFormatter(w, verbose)
	default:
		return NewHumanFormatter(w, verbose)
	}
}

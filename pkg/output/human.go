package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	verbose    bool
	mu         sync.Mutex
	category   models.Category
	totalFiles int
	done       int
}

// NewHumanFormatter creates a new human-readable formatter. Per-file
// lines are only written when verbose is set.
func NewHumanFormatter(writer io.Writer, verbose bool) *HumanFormatter {
	if writer == nil {
		writer = io.Discard
	}
	return &HumanFormatter{writer: writer, verbose: verbose}
}

// Start announces a category
func (f *HumanFormatter) Start(category models.Category, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.category = category
	f.totalFiles = totalFiles
	f.done = 0

	fmt.Fprintf(f.writer, "%s: %d files to process, %s to download (%d workers)\n",
		category, totalFiles, humanize.IBytes(uint64(totalBytes)), maxWorkers)
	return nil
}

// Progress reports progress of a single asset
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdateFileComplete:
		f.done++
		if f.verbose {
			fmt.Fprintf(f.writer, "[%d/%d] saved %s (%s)\n",
				f.done, f.totalFiles, update.FilePath, humanize.IBytes(uint64(update.BytesWritten)))
		}
	case UpdateFileRemoved:
		f.done++
		if f.verbose {
			fmt.Fprintf(f.writer, "[%d/%d] removed %s\n", f.done, f.totalFiles, update.FilePath)
		}
	case UpdateFileError:
		f.done++
		fmt.Fprintf(f.writer, "[%d/%d] failed %s: %v\n", f.done, f.totalFiles, update.FilePath, update.Error)
	}
	return nil
}

// Complete writes the run summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func writeSummary(w io.Writer, report *models.SyncReport) error {
	fmt.Fprintf(w, "\n%s update finished in %s\n\n", report.Client, formatDuration(report.Duration))

	fmt.Fprintf(w, "  %-10s %-14s %-14s %6s %6s %6s %6s  %s\n",
		"Category", "Old", "New", "Saved", "Rm", "Failed", "Same", "Note")
	for _, c := range report.Categories {
		note := ""
		switch {
		case c.Err != nil:
			note = "error: " + c.Err.Error()
		case c.Skipped:
			note = c.SkipReason
		}
		fmt.Fprintf(w, "  %-10s %-14s %-14s %6d %6d %6d %6d  %s\n",
			c.Category, orDash(c.OldVersion), orDash(c.NewVersion),
			c.Stats.FilesDownloaded, c.Stats.FilesRemoved, c.Stats.FilesFailed, c.Stats.FilesUnchanged, note)
	}

	totals := report.Totals()
	fmt.Fprintf(w, "\n  Transferred: %s\n", humanize.IBytes(uint64(totals.BytesTransferred)))
	if report.Duration.Seconds() > 0 && totals.BytesTransferred > 0 {
		avg := float64(totals.BytesTransferred) / report.Duration.Seconds()
		fmt.Fprintf(w, "  Average speed: %s/s\n", humanize.IBytes(uint64(avg)))
	}
	fmt.Fprintf(w, "  Status: %s\n", report.Status)

	var failed []string
	for _, c := range report.Categories {
		for _, p := range c.FailedPaths {
			failed = append(failed, string(c.Category)+": "+p)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		fmt.Fprintf(w, "\nFailed assets (kept for retry on the next run):\n")
		for _, p := range failed {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

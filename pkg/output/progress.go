package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

const barTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }}`

// ProgressFormatter draws one progress bar per category
type ProgressFormatter struct {
	writer io.Writer
	width  int

	mu     sync.Mutex
	bar    *pb.ProgressBar
	errors []string
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(writer io.Writer) *ProgressFormatter {
	if writer == nil {
		writer = os.Stdout
	}

	width := 100
	if file, ok := writer.(*os.File); ok {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	return &ProgressFormatter{writer: writer, width: width}
}

// Start finishes the bar of the previous category and starts a new one
func (f *ProgressFormatter) Start(category models.Category, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()

	bar := pb.ProgressBarTemplate(barTemplate).New(totalFiles)
	bar.SetWriter(f.writer)
	bar.SetMaxWidth(f.width)
	bar.Set("prefix", fmt.Sprintf("%-9s", category))
	f.bar = bar.Start()
	return nil
}

// Progress advances the bar for finished assets
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdateFileComplete, UpdateFileRemoved:
		if f.bar != nil {
			f.bar.Increment()
		}
	case UpdateFileError:
		if f.bar != nil {
			f.bar.Increment()
		}
		f.errors = append(f.errors, fmt.Sprintf("%s: %s: %v", update.Category, update.FilePath, update.Error))
	}
	return nil
}

// Complete finishes the last bar and writes the summary
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	for _, e := range f.errors {
		fmt.Fprintf(f.writer, "failed %s\n", e)
	}
	return writeSummary(f.writer, report)
}

// Error reports an error below the bar
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

// finishBar stops the current bar. Caller holds f.mu.
func (f *ProgressFormatter) finishBar() {
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

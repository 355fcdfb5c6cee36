package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/output"
)

// ErrEmptyContent is reported when a fetch returns no bytes
var ErrEmptyContent = errors.New("fetched content is empty")

// SizeMismatchError is reported when fetched content does not have the
// length recorded in the manifest
type SizeMismatchError struct {
	Path     string
	Expected uint64
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// processTask handles a single asset task
func (p *Pipeline) processTask(ctx context.Context, workerID int, category models.Category, task *AssetTask) {
	startTime := time.Now()
	task.MarkProcessing(workerID)
	p.processedFiles.Add(1)

	if err := ctx.Err(); err != nil {
		task.MarkError(err, time.Since(startTime))
		return
	}

	if task.Compare.Type == models.CompareDeleted {
		p.removeAsset(ctx, category, task, startTime)
		return
	}
	p.downloadAsset(ctx, category, task, startTime)
}

// downloadAsset fetches, verifies and writes a New or Changed asset
func (p *Pipeline) downloadAsset(ctx context.Context, category models.Category, task *AssetTask, startTime time.Time) {
	row := *task.Compare.New
	p.notify(output.ProgressUpdate{
		Type:       output.UpdateFileStart,
		Category:   category,
		FilePath:   row.Path,
		TotalBytes: int64(row.Size),
	})

	data, err := p.fetcher.Fetch(ctx, row)
	if err == nil && len(data) == 0 {
		err = ErrEmptyContent
	}
	if err == nil && uint64(len(data)) != row.Size {
		err = &SizeMismatchError{Path: row.Path, Expected: row.Size, Actual: len(data)}
	}
	if err == nil {
		err = p.dest.Write(ctx, row.Path, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			err = fmt.Errorf("failed to write asset: %w", err)
		}
	}

	if err != nil {
		task.MarkError(err, time.Since(startTime))
		p.reportError(ctx, category, task)
		return
	}

	task.MarkCompleted(models.DownloadSuccess, int64(len(data)), time.Since(startTime))
	p.notify(output.ProgressUpdate{
		Type:         output.UpdateFileComplete,
		Category:     category,
		FilePath:     row.Path,
		BytesWritten: int64(len(data)),
		TotalBytes:   int64(row.Size),
	})

	for _, hook := range p.hooks {
		if hookErr := hook.AfterDownload(ctx, category, row.Path); hookErr != nil && p.logger != nil {
			p.logger.Warn(ctx, "Post-download hook failed", logging.Fields{
				"category": category,
				"path":     row.Path,
				"error":    hookErr.Error(),
			})
		}
	}
}

// removeAsset deletes a Deleted asset. An asset that is already gone
// counts as removed.
func (p *Pipeline) removeAsset(ctx context.Context, category models.Category, task *AssetTask, startTime time.Time) {
	path := task.Path()

	if !p.config.AllowDeletion {
		task.MarkCompleted(models.DownloadSkipped, 0, time.Since(startTime))
		return
	}

	err := p.dest.Delete(ctx, path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		if p.logger != nil {
			p.logger.Warn(ctx, "Asset to remove does not exist", logging.Fields{
				"category": category,
				"path":     path,
			})
		}
	default:
		task.MarkError(fmt.Errorf("failed to remove asset: %w", err), time.Since(startTime))
		p.reportError(ctx, category, task)
		return
	}

	task.MarkCompleted(models.DownloadRemoved, 0, time.Since(startTime))
	p.notify(output.ProgressUpdate{
		Type:     output.UpdateFileRemoved,
		Category: category,
		FilePath: path,
	})
}

func (p *Pipeline) reportError(ctx context.Context, category models.Category, task *AssetTask) {
	if p.logger != nil {
		p.logger.Error(ctx, "Asset update failed", task.Err, logging.Fields{
			"category": category,
			"path":     task.Path(),
			"type":     task.Compare.Type,
		})
	}
	p.notify(output.ProgressUpdate{
		Type:     output.UpdateFileError,
		Category: category,
		FilePath: task.Path(),
		Error:    task.Err,
	})
}

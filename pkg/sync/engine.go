package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nobbyfix/AzurLaneTools/pkg/compare"
	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/output"
	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
)

// Source serves hash listings and asset content, like the CDN
type Source interface {
	Fetcher
	FetchHashes(ctx context.Context, versionHash string) ([]models.HashRow, error)
}

// Recorder persists a summary of every category run
type Recorder interface {
	Record(ctx context.Context, rec models.RunRecord) error
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	Client   models.Client
	Pipeline PipelineConfig

	// ForceRefresh compares manifests even when the version is unchanged
	ForceRefresh bool

	// Categories restricts updates to the listed categories; empty means all
	Categories []models.Category
}

// Engine brings the categories of one client directory to new versions
type Engine struct {
	store     *store.Store
	dest      storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	config    EngineConfig
	recorder  Recorder
	hooks     []Hook
}

// NewEngine creates a new engine. dest is the AssetBundles directory of
// the client whose metadata st holds.
func NewEngine(
	st *store.Store,
	dest storage.Backend,
	formatter output.Formatter,
	logger logging.Logger,
	config EngineConfig,
) *Engine {
	return &Engine{
		store:     st,
		dest:      dest,
		formatter: formatter,
		logger:    logging.OrNull(logger),
		config:    config,
	}
}

// SetRecorder sets the history recorder
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// AddHook registers a post-download hook for every pipeline
func (e *Engine) AddHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// Store returns the metadata store of the engine
func (e *Engine) Store() *store.Store {
	return e.store
}

// NewReport starts a report for a run fed from source
func (e *Engine) NewReport(source string) *models.SyncReport {
	return &models.SyncReport{
		RunID:     uuid.New().String(),
		Client:    e.config.Client,
		Source:    source,
		StartTime: time.Now(),
	}
}

// Finish finalizes report and hands it to the formatter
func (e *Engine) Finish(ctx context.Context, report *models.SyncReport) {
	report.Finish(ctx.Err() != nil)

	totals := report.Totals()
	e.logger.Info(ctx, "Run completed", logging.Fields{
		"run_id":            report.RunID,
		"client":            report.Client,
		"source":            report.Source,
		"status":            report.Status,
		"duration":          report.Duration.String(),
		"files_downloaded":  totals.FilesDownloaded,
		"files_removed":     totals.FilesRemoved,
		"files_failed":      totals.FilesFailed,
		"bytes_transferred": totals.BytesTransferred,
	})

	if e.formatter != nil {
		e.formatter.Complete(report)
	}
}

// Wants reports whether category is selected by the configuration
func (e *Engine) Wants(category models.Category) bool {
	if len(e.config.Categories) == 0 {
		return true
	}
	for _, c := range e.config.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Update processes the version records one category at a time. A
// category whose stored version equals the record's version is skipped
// unless ForceRefresh is set.
func (e *Engine) Update(ctx context.Context, src Source, records []models.VersionRecord) *models.SyncReport {
	report := e.NewReport("cdn")

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		if !e.Wants(rec.Category) {
			continue
		}

		started := time.Now()
		oldVersion, _, err := e.store.LoadVersion(rec.Category)
		if err != nil {
			report.Categories = append(report.Categories, e.FailCategory(ctx, rec.Category, "", rec.Version, err, started))
			continue
		}

		if oldVersion == rec.Version && !e.config.ForceRefresh {
			e.logger.Info(ctx, "Category is up to date", logging.Fields{
				"category": rec.Category,
				"version":  rec.Version,
			})
			report.Categories = append(report.Categories, models.CategoryReport{
				Category:   rec.Category,
				OldVersion: oldVersion,
				NewVersion: rec.Version,
				Skipped:    true,
				SkipReason: "version unchanged",
			})
			continue
		}

		rows, err := src.FetchHashes(ctx, rec.Hash)
		if err != nil {
			err = fmt.Errorf("failed to fetch hashes: %w", err)
			report.Categories = append(report.Categories, e.FailCategory(ctx, rec.Category, oldVersion, rec.Version, err, started))
			continue
		}

		report.Categories = append(report.Categories, e.Apply(ctx, report, CategoryUpdate{
			Category:   rec.Category,
			OldVersion: oldVersion,
			NewVersion: rec.Version,
			Rows:       rows,
			Fetcher:    src,
		}))
	}

	e.Finish(ctx, report)
	return report
}

// CategoryUpdate describes the target state of one category
type CategoryUpdate struct {
	Category   models.Category
	OldVersion string
	NewVersion string
	Rows       []models.HashRow
	Fetcher    Fetcher
}

// Apply diffs the stored manifest of a category against u.Rows, runs the
// pipeline and persists the manifest, version and diff log. Nothing is
// persisted when ctx is cancelled during the pipeline.
func (e *Engine) Apply(ctx context.Context, report *models.SyncReport, u CategoryUpdate) models.CategoryReport {
	started := time.Now()
	logger := e.logger.WithFields(logging.Fields{
		"run_id":   report.RunID,
		"category": u.Category,
	})

	current, err := e.store.LoadManifest(u.Category)
	if err != nil {
		return e.FailCategory(ctx, u.Category, u.OldVersion, u.NewVersion, err, started)
	}

	comparison := compare.Hashes(current, models.NewManifest(u.Rows))
	summary := compare.Summarize(comparison)
	logger.Info(ctx, "Updating category", logging.Fields{
		"old_version": u.OldVersion,
		"new_version": u.NewVersion,
		"new":         summary.New,
		"changed":     summary.Changed,
		"deleted":     summary.Deleted,
		"unchanged":   summary.Unchanged,
	})

	pipeline := NewPipeline(e.dest, u.Fetcher, e.formatter, logger, e.config.Pipeline)
	for _, h := range e.hooks {
		pipeline.AddHook(h)
	}
	results, stats := pipeline.Run(ctx, u.Category, comparison)

	cr := models.CategoryReport{
		Category:    u.Category,
		OldVersion:  u.OldVersion,
		NewVersion:  u.NewVersion,
		Stats:       stats,
		FailedPaths: FailedPaths(results),
	}

	if ctx.Err() != nil {
		cr.Err = fmt.Errorf("update interrupted: %w", ctx.Err())
	} else if err := e.store.Commit(u.Category, u.NewVersion, FilterHashes(results)); err != nil {
		cr.Err = err
	} else if entry, changed := store.NewDiffLogEntry(u.NewVersion, results); changed {
		if err := e.store.WriteDiffLog(u.Category, entry); err != nil {
			cr.Err = err
		}
	}
	cr.Duration = time.Since(started)

	if cr.Err != nil {
		logger.Error(ctx, "Category update failed", cr.Err, nil)
	}
	e.record(ctx, report, cr, results, started)
	return cr
}

// FailCategory logs err and returns the report of a category that could
// not be processed
func (e *Engine) FailCategory(ctx context.Context, category models.Category, oldVersion, newVersion string, err error, started time.Time) models.CategoryReport {
	e.logger.Error(ctx, "Category update failed", err, logging.Fields{"category": category})
	if e.formatter != nil {
		e.formatter.Error(fmt.Errorf("%s: %w", category, err))
	}
	return models.CategoryReport{
		Category:   category,
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Err:        err,
		Duration:   time.Since(started),
	}
}

// record writes the category run to the history recorder, if any.
// Recording failures are logged only.
func (e *Engine) record(ctx context.Context, report *models.SyncReport, cr models.CategoryReport, results []models.UpdateResult, started time.Time) {
	if e.recorder == nil {
		return
	}

	rec := models.RunRecord{
		RunID:      report.RunID,
		Client:     report.Client,
		Category:   cr.Category,
		Source:     report.Source,
		OldVersion: cr.OldVersion,
		NewVersion: cr.NewVersion,
		StartedAt:  started,
		FinishedAt: started.Add(cr.Duration),
		Status:     "success",
		Stats:      cr.Stats,
		Results:    results,
	}
	if cr.Err != nil {
		rec.Status = "failed"
		rec.Error = cr.Err.Error()
	}

	// the ledger must not be skipped because the run was cancelled
	if err := e.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn(ctx, "Failed to record run history", logging.Fields{
			"category": cr.Category,
			"error":    err.Error(),
		})
	}
}

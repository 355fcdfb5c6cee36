package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nobbyfix/AzurLaneTools/pkg/compare"
	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Repair verifies every asset listed in the stored manifests against its
// MD5 digest and re-downloads missing or corrupt ones. Stored manifests,
// versions and diff logs are left untouched and nothing is deleted.
func (e *Engine) Repair(ctx context.Context, fetcher Fetcher, categories []models.Category) *models.SyncReport {
	report := e.NewReport("repair")

	for _, category := range categories {
		if ctx.Err() != nil {
			break
		}
		if !e.Wants(category) {
			continue
		}
		report.Categories = append(report.Categories, e.repairCategory(ctx, report, fetcher, category))
	}

	e.Finish(ctx, report)
	return report
}

func (e *Engine) repairCategory(ctx context.Context, report *models.SyncReport, fetcher Fetcher, category models.Category) models.CategoryReport {
	started := time.Now()

	version, _, err := e.store.LoadVersion(category)
	if err != nil {
		return e.FailCategory(ctx, category, "", "", err, started)
	}
	expected, err := e.store.LoadManifest(category)
	if err != nil {
		return e.FailCategory(ctx, category, version, version, err, started)
	}

	local, err := e.scanLocal(ctx, category, expected)
	if err != nil {
		return e.FailCategory(ctx, category, version, version, fmt.Errorf("failed to verify local assets: %w", err), started)
	}

	config := e.config.Pipeline
	config.AllowDeletion = false
	pipeline := NewPipeline(e.dest, fetcher, e.formatter, e.logger.WithFields(logging.Fields{
		"run_id":   report.RunID,
		"category": category,
	}), config)
	for _, h := range e.hooks {
		pipeline.AddHook(h)
	}
	results, stats := pipeline.Run(ctx, category, compare.Hashes(local, expected))

	cr := models.CategoryReport{
		Category:    category,
		OldVersion:  version,
		NewVersion:  version,
		Stats:       stats,
		FailedPaths: FailedPaths(results),
		Duration:    time.Since(started),
	}
	if ctx.Err() != nil {
		cr.Err = fmt.Errorf("repair interrupted: %w", ctx.Err())
	}
	e.record(ctx, report, cr, results, started)
	return cr
}

// scanLocal hashes the files of expected that exist on disk. Missing and
// unreadable files are left out, so they compare as New.
func (e *Engine) scanLocal(ctx context.Context, category models.Category, expected models.Manifest) (models.Manifest, error) {
	hasher := compare.NewMD5Hasher(64 * 1024)
	local := make(models.Manifest, len(expected))
	var mu sync.Mutex

	workers := e.config.Pipeline.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for path := range expected {
		g.Go(func() error {
			if info, err := e.dest.Stat(gctx, path); err == nil && uint64(info.Size) != expected[path].Size {
				// a size mismatch needs no digest
				mu.Lock()
				local[path] = models.HashRow{Path: path, Size: uint64(info.Size)}
				mu.Unlock()
				return nil
			}

			hash, size, err := hasher.HashFile(gctx, e.dest, path)
			switch {
			case err == nil:
			case errors.Is(err, fs.ErrNotExist):
				return nil
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				e.logger.Warn(gctx, "Failed to hash local asset", logging.Fields{
					"category": category,
					"path":     path,
					"error":    err.Error(),
				})
				return nil
			}

			mu.Lock()
			local[path] = models.HashRow{Path: path, Size: uint64(size), Hash: hash}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return local, nil
}

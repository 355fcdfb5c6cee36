package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/store"
	"github.com/nobbyfix/AzurLaneTools/pkg/sync"
)

// Options controls an import
type Options struct {
	// AllowOlder imports categories whose archive version is not newer
	// than the local one
	AllowOlder bool
}

// Importer applies the asset archives of a package to a client directory
type Importer struct {
	engine  *sync.Engine
	logger  logging.Logger
	options Options
}

// NewImporter creates an importer updating through engine
func NewImporter(engine *sync.Engine, logger logging.Logger, options Options) *Importer {
	return &Importer{
		engine:  engine,
		logger:  logging.OrNull(logger),
		options: options,
	}
}

// Import processes every archive of pkg, category by category
func (im *Importer) Import(ctx context.Context, pkg *Package) *models.SyncReport {
	report := im.engine.NewReport("archive:" + filepath.Base(pkg.Path))

	im.logger.Info(ctx, "Importing package", logging.Fields{
		"path":     pkg.Path,
		"kind":     pkg.Kind,
		"client":   pkg.Client,
		"archives": len(pkg.Archives),
	})

	for _, a := range pkg.Archives {
		if ctx.Err() != nil {
			break
		}
		report.Categories = append(report.Categories, im.importArchive(ctx, report, a)...)
	}

	im.engine.Finish(ctx, report)
	return report
}

// importArchive opens one archive and imports its categories. The
// archive is held in memory only for the duration of the call.
func (im *Importer) importArchive(ctx context.Context, report *models.SyncReport, a Archive) []models.CategoryReport {
	var categories []models.Category
	for _, category := range models.AllCategories {
		if im.engine.Wants(category) {
			categories = append(categories, category)
		}
	}

	started := time.Now()
	zr, err := a.Open()
	if err != nil {
		im.logger.Error(ctx, "Failed to open archive", err, logging.Fields{"archive": a.Name})
		reports := make([]models.CategoryReport, 0, len(categories))
		for _, category := range categories {
			reports = append(reports, im.engine.FailCategory(ctx, category, "", "", err, started))
		}
		return reports
	}

	im.logger.Debug(ctx, "Importing archive", logging.Fields{"archive": a.Name})

	var reports []models.CategoryReport
	for _, category := range categories {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, im.importCategory(ctx, report, zr, category))
	}
	return reports
}

func (im *Importer) importCategory(ctx context.Context, report *models.SyncReport, zr *zip.Reader, category models.Category) models.CategoryReport {
	started := time.Now()
	st := im.engine.Store()

	raw, err := readEntry(zr, "assets/"+category.VersionFilename())
	if errors.Is(err, fs.ErrNotExist) {
		im.logger.Warn(ctx, "Version file missing from archive", logging.Fields{
			"category": category,
			"file":     category.VersionFilename(),
		})
		return models.CategoryReport{Category: category, Skipped: true, SkipReason: "version file missing"}
	}
	if err != nil {
		return im.engine.FailCategory(ctx, category, "", "", err, started)
	}
	archiveVersion := strings.TrimSpace(string(raw))

	localVersion, ok, err := st.LoadVersion(category)
	if err != nil {
		return im.engine.FailCategory(ctx, category, "", archiveVersion, err, started)
	}
	if ok && !im.options.AllowOlder && models.CompareVersions(archiveVersion, localVersion) <= 0 {
		im.logger.Info(ctx, "Local version is same or newer than archive", logging.Fields{
			"category":        category,
			"local_version":   localVersion,
			"archive_version": archiveVersion,
		})
		return models.CategoryReport{
			Category:   category,
			OldVersion: localVersion,
			NewVersion: archiveVersion,
			Skipped:    true,
			SkipReason: "archive version is not newer",
		}
	}

	data, err := readEntry(zr, "assets/"+category.HashesFilename())
	if err != nil {
		return im.engine.FailCategory(ctx, category, localVersion, archiveVersion, err, started)
	}
	rows, err := store.ParseHashes(bytes.NewReader(data))
	if err != nil {
		err = fmt.Errorf("failed to parse %s: %w", category.HashesFilename(), err)
		return im.engine.FailCategory(ctx, category, localVersion, archiveVersion, err, started)
	}

	return im.engine.Apply(ctx, report, sync.CategoryUpdate{
		Category:   category,
		OldVersion: localVersion,
		NewVersion: archiveVersion,
		Rows:       rows,
		Fetcher:    NewZipFetcher(zr),
	})
}

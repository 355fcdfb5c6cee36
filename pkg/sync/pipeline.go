package sync

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nobbyfix/AzurLaneTools/pkg/compare"
	"github.com/nobbyfix/AzurLaneTools/pkg/logging"
	"github.com/nobbyfix/AzurLaneTools/pkg/models"
	"github.com/nobbyfix/AzurLaneTools/pkg/output"
	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
)

// Fetcher returns the content of an asset described by a manifest row.
// The CDN keys content by hash, an archive by path.
type Fetcher interface {
	Fetch(ctx context.Context, row models.HashRow) ([]byte, error)
}

// Hook is invoked by a worker after an asset was written successfully
type Hook interface {
	AfterDownload(ctx context.Context, category models.Category, path string) error
}

// PipelineConfig holds configuration for the pipeline
type PipelineConfig struct {
	MaxWorkers int
	QueueSize  int // Buffer size for the task queue

	// Filter limits which New and Changed assets are fetched
	Filter *FolderFilter

	// AllowDeletion enables removal of Deleted assets
	AllowDeletion bool
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxWorkers:    runtime.NumCPU(),
		QueueSize:     1000,
		AllowDeletion: true,
	}
}

// Pipeline applies one category comparison to the asset directory using
// a bounded pool of workers fed from a task queue.
type Pipeline struct {
	dest      storage.Backend
	fetcher   Fetcher
	formatter output.Formatter
	logger    logging.Logger
	config    PipelineConfig
	hooks     []Hook

	processedFiles atomic.Int32
	totalFiles     int

	// Results collection
	results   []models.UpdateResult
	resultsMu sync.Mutex
}

// NewPipeline creates a new pipeline writing into dest
func NewPipeline(
	dest storage.Backend,
	fetcher Fetcher,
	formatter output.Formatter,
	logger logging.Logger,
	config PipelineConfig,
) *Pipeline {
	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}
	if config.QueueSize < 100 {
		config.QueueSize = 100
	}

	return &Pipeline{
		dest:      dest,
		fetcher:   fetcher,
		formatter: formatter,
		logger:    logger,
		config:    config,
	}
}

// AddHook registers a post-download hook
func (p *Pipeline) AddHook(h Hook) {
	p.hooks = append(p.hooks, h)
}

// Run applies comparison and returns one result per path, sorted by path,
// together with the aggregated statistics. It returns only after every
// worker has finished. Per-asset errors never abort the batch.
func (p *Pipeline) Run(ctx context.Context, category models.Category, comparison map[string]models.CompareResult) ([]models.UpdateResult, models.Statistics) {
	p.results = make([]models.UpdateResult, 0, len(comparison))
	p.processedFiles.Store(0)

	var tasks []*AssetTask
	var totalBytes int64
	for _, path := range compare.SortedPaths(comparison) {
		cr := comparison[path]
		switch {
		case cr.Type == models.CompareUnchanged:
			p.addResult(models.UpdateResult{Compare: cr, Outcome: models.DownloadNoChange, Path: path})
		case cr.Type != models.CompareDeleted && !p.config.Filter.Allow(path):
			p.addResult(models.UpdateResult{Compare: cr, Outcome: models.DownloadSkipped, Path: path})
		default:
			tasks = append(tasks, NewAssetTask(cr, len(tasks)+1))
			if cr.New != nil {
				totalBytes += int64(cr.New.Size)
			}
		}
	}
	p.totalFiles = len(tasks)

	if p.logger != nil {
		p.logger.Info(ctx, "Starting category pipeline", logging.Fields{
			"category":    category,
			"pending":     len(tasks),
			"total_bytes": totalBytes,
			"max_workers": p.config.MaxWorkers,
		})
	}
	if p.formatter != nil {
		p.formatter.Start(category, len(tasks), totalBytes, p.config.MaxWorkers)
	}

	taskQueue := make(chan *AssetTask, p.config.QueueSize)

	var workersWg sync.WaitGroup
	workerCount := p.config.MaxWorkers
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}
	for i := 0; i < workerCount; i++ {
		workersWg.Add(1)
		go p.runWorker(ctx, i, category, taskQueue, &workersWg)
	}

	// Producer: a cancelled context still drains every task so each path
	// reports a result.
	for _, task := range tasks {
		taskQueue <- task
	}
	close(taskQueue)

	workersWg.Wait()

	sort.Slice(p.results, func(i, j int) bool { return p.results[i].Path < p.results[j].Path })
	stats := Tally(p.results)

	if p.logger != nil {
		p.logger.Info(ctx, "Category pipeline completed", logging.Fields{
			"category":          category,
			"downloaded":        stats.FilesDownloaded,
			"removed":           stats.FilesRemoved,
			"failed":            stats.FilesFailed,
			"skipped":           stats.FilesSkipped,
			"bytes_transferred": stats.BytesTransferred,
		})
	}

	return p.results, stats
}

// runWorker is the worker goroutine that processes tasks
func (p *Pipeline) runWorker(ctx context.Context, workerID int, category models.Category, queue <-chan *AssetTask, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range queue {
		p.processTask(ctx, workerID, category, task)
		p.addResult(task.Result())
	}
}

// addResult adds a result to the collection (thread-safe)
func (p *Pipeline) addResult(r models.UpdateResult) {
	p.resultsMu.Lock()
	p.results = append(p.results, r)
	p.resultsMu.Unlock()
}

func (p *Pipeline) notify(update output.ProgressUpdate) {
	if p.formatter == nil {
		return
	}
	update.CurrentFile = int(p.processedFiles.Load())
	update.TotalFiles = p.totalFiles
	p.formatter.Progress(update)
}

// Tally aggregates outcome counts over results
func Tally(results []models.UpdateResult) models.Statistics {
	var s models.Statistics
	for _, r := range results {
		switch r.Compare.Type {
		case models.CompareNew:
			s.FilesNew++
		case models.CompareChanged:
			s.FilesChanged++
		case models.CompareDeleted:
			s.FilesDeleted++
		case models.CompareUnchanged:
			s.FilesUnchanged++
		}

		switch r.Outcome {
		case models.DownloadSuccess:
			s.FilesDownloaded++
			s.BytesTransferred += r.Bytes
		case models.DownloadRemoved:
			s.FilesRemoved++
		case models.DownloadFailed:
			s.FilesFailed++
		case models.DownloadSkipped:
			s.FilesSkipped++
		}
	}
	return s
}

// FilterHashes derives the manifest rows to persist after a run: the new
// row for Success and NoChange, the current row for Failed and Skipped
// (dropped when there is none) and nothing for Removed.
func FilterHashes(results []models.UpdateResult) []models.HashRow {
	rows := make([]models.HashRow, 0, len(results))
	for _, r := range results {
		switch r.Outcome {
		case models.DownloadSuccess, models.DownloadNoChange:
			if r.Compare.New != nil {
				rows = append(rows, *r.Compare.New)
			}
		case models.DownloadFailed, models.DownloadSkipped:
			if r.Compare.Current != nil {
				rows = append(rows, *r.Compare.Current)
			}
		}
	}
	return rows
}

// FailedPaths lists the paths whose outcome is Failed
func FailedPaths(results []models.UpdateResult) []string {
	var paths []string
	for _, r := range results {
		if r.Outcome == models.DownloadFailed {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

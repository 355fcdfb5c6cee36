package sync

import (
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// TaskStatus represents the status of an asset task in the pipeline
type TaskStatus string

const (
	// TaskPending indicates the task is waiting to be processed
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates the task is currently being processed by a worker
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted indicates the task reached a final outcome
	TaskCompleted TaskStatus = "completed"
	// TaskError indicates the task failed with an error
	TaskError TaskStatus = "error"
)

// AssetTask is one New, Changed or Deleted entry of a comparison
type AssetTask struct {
	Compare models.CompareResult

	// Index is the 1-based position used for progress display
	Index int

	Status   TaskStatus
	Outcome  models.DownloadType
	Err      error
	Bytes    int64
	Duration time.Duration
	WorkerID int
}

// NewAssetTask creates a pending task
func NewAssetTask(cr models.CompareResult, index int) *AssetTask {
	return &AssetTask{Compare: cr, Index: index, Status: TaskPending}
}

// Path returns the asset path of the task
func (t *AssetTask) Path() string {
	return t.Compare.Path()
}

// MarkProcessing marks the task as being processed by a worker
func (t *AssetTask) MarkProcessing(workerID int) {
	t.Status = TaskProcessing
	t.WorkerID = workerID
}

// MarkCompleted records a final outcome
func (t *AssetTask) MarkCompleted(outcome models.DownloadType, bytes int64, duration time.Duration) {
	t.Status = TaskCompleted
	t.Outcome = outcome
	t.Bytes = bytes
	t.Duration = duration
}

// MarkError marks the task as failed with an error
func (t *AssetTask) MarkError(err error, duration time.Duration) {
	t.Status = TaskError
	t.Outcome = models.DownloadFailed
	t.Err = err
	t.Duration = duration
}

// Result converts the task to its update result
func (t *AssetTask) Result() models.UpdateResult {
	return models.UpdateResult{
		Compare:  t.Compare,
		Outcome:  t.Outcome,
		Path:     t.Path(),
		Bytes:    t.Bytes,
		Err:      t.Err,
		Duration: t.Duration,
	}
}

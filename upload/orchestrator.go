package upload

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ronit111/documind/api"
	"github.com/ronit111/documind/iox"
	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
	"github.com/ronit111/documind/types"
)

// Uploader transfers one file to the server.
type Uploader interface {
	UploadDocument(ctx context.Context, file types.FileRef, onProgress iox.ProgressFunc) (*types.UploadResponse, error)
}

// Config configures the orchestrator.
type Config struct {
	// Parallel is the maximum number of concurrent transfers; 0 means unbounded.
	Parallel int
}

// Summary aggregates task outcomes.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Done      int `json:"done"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCompletion registers fn to run once per task that reaches done.
// fn runs on the transfer's goroutine.
func WithCompletion(fn func(types.UploadTask)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// WithUpdates registers fn to observe every stored task change.
// fn may be called from several goroutines at once.
func WithUpdates(fn func(types.UploadTask)) Option {
	return func(o *Orchestrator) { o.onUpdate = fn }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// Orchestrator runs independent concurrent uploads and tracks them by task id.
type Orchestrator struct {
	config   Config
	uploader Uploader
	store    *Store
	sem      *semaphore.Weighted

	onComplete func(types.UploadTask)
	onUpdate   func(types.UploadTask)
	logger     *log.Logger
	metrics    *metrics.Collector
	newID      func() string

	wg       sync.WaitGroup
	rejected atomic.Int64
}

// NewOrchestrator creates an orchestrator transferring files with uploader.
func NewOrchestrator(uploader Uploader, config Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		config:   config,
		uploader: uploader,
		store:    NewStore(),
		logger:   log.Nop(),
		newID:    func() string { return uuid.New().String() },
	}
	if config.Parallel > 0 {
		o.sem = semaphore.NewWeighted(int64(config.Parallel))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the task store.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// SubmitBatch validates every file, then starts a transfer for each
// accepted one. Rejected files are recorded as error tasks and never
// transferred. It returns the tasks as submitted, in input order; their
// later states are in Store.
func (o *Orchestrator) SubmitBatch(ctx context.Context, files []types.FileRef) []types.UploadTask {
	tasks := make([]types.UploadTask, len(files))
	for i, file := range files {
		task := types.UploadTask{
			ID:     o.newID(),
			File:   file,
			Status: types.UploadPending,
		}
		if verr := Validate(file); verr != nil {
			task.Status = types.UploadError
			task.ErrorMessage = verr.Reason
		}
		tasks[i] = task
	}

	for _, task := range tasks {
		o.store.Add(task)
		o.metrics.IncUploadSubmitted()
		o.notify(task)
		if task.Status == types.UploadError {
			o.rejected.Add(1)
			o.metrics.IncUploadRejected()
			o.logger.Info("upload rejected", map[string]any{
				"task_id":  task.ID,
				"filename": task.File.Name,
				"reason":   task.ErrorMessage,
			})
		}
	}

	for _, task := range tasks {
		if task.Status == types.UploadError {
			continue
		}
		o.wg.Add(1)
		go o.transfer(ctx, task.ID, task.File)
	}
	return tasks
}

// Wait blocks until every started transfer has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Summary counts the tasks by state.
func (o *Orchestrator) Summary() Summary {
	var s Summary
	for _, task := range o.store.Snapshot() {
		s.Total++
		switch task.Status {
		case types.UploadPending:
			s.Pending++
		case types.UploadUploading:
			s.Uploading++
		case types.UploadDone:
			s.Done++
		case types.UploadError:
			s.Failed++
		}
	}
	s.Rejected = int(o.rejected.Load())
	s.Failed -= s.Rejected
	return s
}

func (o *Orchestrator) transfer(ctx context.Context, id string, file types.FileRef) {
	defer o.wg.Done()

	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			o.fail(id, file, err)
			return
		}
		defer o.sem.Release(1)
	}

	o.update(id, func(t types.UploadTask) types.UploadTask {
		t.Status = types.UploadUploading
		return t
	})

	resp, err := o.uploader.UploadDocument(ctx, file, func(percent int) {
		o.update(id, func(t types.UploadTask) types.UploadTask {
			t.Progress = percent
			return t
		})
	})
	if err != nil {
		o.fail(id, file, err)
		return
	}

	task, _ := o.update(id, func(t types.UploadTask) types.UploadTask {
		t.Status = types.UploadDone
		t.Progress = 100
		t.DocumentID = resp.ID
		return t
	})
	o.metrics.IncUploadSucceeded()
	o.logger.Info("upload completed", map[string]any{
		"task_id":     id,
		"filename":    file.Name,
		"document_id": resp.ID,
	})
	if o.onComplete != nil {
		o.onComplete(task)
	}
}

func (o *Orchestrator) fail(id string, file types.FileRef, err error) {
	message := api.Message(err)
	o.update(id, func(t types.UploadTask) types.UploadTask {
		t.Status = types.UploadError
		t.ErrorMessage = message
		return t
	})
	o.metrics.IncUploadFailed()
	o.logger.Warn("upload failed", map[string]any{
		"task_id":  id,
		"filename": file.Name,
		"error":    err.Error(),
	})
}

func (o *Orchestrator) update(id string, fn func(types.UploadTask) types.UploadTask) (types.UploadTask, bool) {
	task, changed := o.store.Update(id, fn)
	if changed {
		o.notify(task)
	}
	return task, changed
}

func (o *Orchestrator) notify(task types.UploadTask) {
	if o.onUpdate != nil {
		o.onUpdate(task)
	}
}

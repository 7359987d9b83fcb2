package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one claimed job. A returned error fails the job; the
// queue decides whether it retries.
type Handler func(ctx context.Context, job *Job) error

// ExhaustedFunc runs when a job burns its last attempt, so the owning
// record can be moved to a terminal error state.
type ExhaustedFunc func(ctx context.Context, job *Job, errMsg string)

// Worker polls the queue and dispatches jobs to registered handlers with
// per-type concurrency limits.
type Worker struct {
	queue       *Queue
	logger      *slog.Logger
	handlers    map[string]Handler
	concurrency map[string]int
	onExhausted ExhaustedFunc

	tick      time.Duration
	retryTick time.Duration
}

// WorkerOption customises the worker.
type WorkerOption func(*Worker)

// WithTick sets the poll interval. Tests shorten it.
func WithTick(d time.Duration) WorkerOption {
	return func(w *Worker) { w.tick = d }
}

// WithRetryTick sets how often failed jobs are requeued.
func WithRetryTick(d time.Duration) WorkerOption {
	return func(w *Worker) { w.retryTick = d }
}

// OnExhausted registers the last-attempt callback.
func OnExhausted(fn ExhaustedFunc) WorkerOption {
	return func(w *Worker) { w.onExhausted = fn }
}

func NewWorker(queue *Queue, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:       queue,
		logger:      logger,
		handlers:    make(map[string]Handler),
		concurrency: make(map[string]int),
		tick:        time.Second,
		retryTick:   30 * time.Second,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// RegisterHandler binds a job type to its handler. Must be called before
// Start.
func (w *Worker) RegisterHandler(jobType string, h Handler) {
	w.handlers[jobType] = h
	w.logger.Info("job handler registered", "type", jobType)
}

// SetConcurrency allows up to n jobs of a type in flight at once.
func (w *Worker) SetConcurrency(jobType string, n int) {
	if n < 1 {
		n = 1
	}
	w.concurrency[jobType] = n
}

func (w *Worker) limit(jobType string) int {
	if n, ok := w.concurrency[jobType]; ok {
		return n
	}
	return 1
}

// Start runs the poll loop until ctx is cancelled. In-flight jobs are given
// their own chance to observe cancellation through the same ctx.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("pipeline worker starting", "tick", w.tick)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	retryTicker := time.NewTicker(w.retryTick)
	defer retryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pipeline worker stopping")
			return ctx.Err()

		case <-retryTicker.C:
			if n, err := w.queue.RetryFailed(ctx); err != nil {
				w.logger.Error("retry sweep failed", "error", err)
			} else if n > 0 {
				w.logger.Info("requeued failed jobs", "count", n)
			}

		case <-ticker.C:
			for jobType := range w.handlers {
				w.drain(ctx, jobType)
			}
		}
	}
}

// drain claims and runs up to the concurrency limit of jobs for one type,
// then waits for them. One tick never leaves goroutines behind.
func (w *Worker) drain(ctx context.Context, jobType string) {
	limit := w.limit(jobType)
	handler := w.handlers[jobType]

	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		job, err := w.queue.Poll(ctx, jobType)
		if err != nil {
			w.logger.Error("poll failed", "type", jobType, "error", err)
			break
		}
		if job == nil {
			break
		}
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			w.run(ctx, handler, j)
		}(job)
	}
	wg.Wait()
}

func (w *Worker) run(ctx context.Context, handler Handler, j *Job) {
	w.logger.Info("processing job", "job_id", j.ID, "type", j.Type, "note_id", j.NoteID, "attempt", j.Attempts+1)

	err := handler(ctx, j)
	if err == nil {
		if cerr := w.queue.Complete(ctx, j.ID); cerr != nil {
			w.logger.Error("complete failed", "job_id", j.ID, "error", cerr)
		}
		return
	}

	w.logger.Error("job handler failed", "job_id", j.ID, "note_id", j.NoteID, "attempt", j.Attempts+1, "error", err)
	exhausted, ferr := w.queue.Fail(ctx, j.ID, err.Error())
	if ferr != nil {
		w.logger.Error("fail bookkeeping failed", "job_id", j.ID, "error", ferr)
		return
	}
	if exhausted && w.onExhausted != nil {
		w.onExhausted(ctx, j, err.Error())
	}
}

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Runner lifecycle errors.
var (
	ErrRunnerNotStarted = errors.New("task runner is not started")
	ErrRunnerStopped    = errors.New("task runner has been stopped")
)

// TaskRunner persists submitted tasks, feeds them through a TaskQueue to a
// WorkerPool, and records every status change in the TaskStore. Tasks left
// pending or processing by a previous run are decoded and requeued on Start.
type TaskRunner struct {
	store   TaskStore
	decoder Decoder
	queue   *TaskQueue
	pool    *WorkerPool
	config  TaskRunnerConfig
	logger  *slog.Logger

	errHandler func(task Task, err error)

	mu      sync.Mutex
	tracked map[uuid.UUID]struct{}
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner. decoder may be nil when no task
// needs to survive a restart.
func NewTaskRunner(store TaskStore, decoder Decoder, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.StuckTaskAge <= 0 {
		config.StuckTaskAge = 30 * time.Minute
	}

	r := &TaskRunner{
		store:   store,
		decoder: decoder,
		queue:   NewTaskQueue(config.QueueSize, logger),
		config:  config,
		logger:  logger,
		tracked: make(map[uuid.UUID]struct{}),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	if handler != nil {
		r.errHandler = handler
	}
}

// Submit persists task as pending and queues it. When the queue is full the
// task stays pending in the store and is picked up by the next recovery.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return ErrRunnerNotStarted
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := r.enqueue(task); err != nil {
		return fmt.Errorf("task %s saved but not queued: %w", task.ID(), err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor. A stopped runner cannot be restarted.
func (r *TaskRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRunnerStopped
	}
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start(ctx)

	r.wg.Add(1)
	go r.stuckTaskMonitor(ctx)

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop gracefully shuts down the task runner. Tasks still queued remain
// pending in the store.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.pool.Stop()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover requeues pending tasks and resets processing tasks left behind by
// a previous run.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// A zero age returns every processing task.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, false)
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, true)
	}
	return nil
}

// requeue decodes rec and puts it back on the queue, resetting it to pending
// first when reset is set. Records that cannot be decoded are marked failed.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, reset bool) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	if r.isTracked(rec.ID) {
		return
	}
	if r.decoder == nil {
		log.Warn("no decoder configured, leaving task in store")
		return
	}

	t, err := r.decoder.Decode(rec)
	if err != nil {
		log.Error("failed to decode stored task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark undecodable task as failed", "error", updateErr)
		}
		return
	}

	if reset {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "reset after recovery"); err != nil {
			log.Error("failed to reset processing task status", "error", err)
			return
		}
	}

	if err := r.enqueue(t); err != nil {
		log.Error("failed to requeue task", "error", err)
		return
	}
	log.Info("requeued task")
}

func (r *TaskRunner) enqueue(t Task) error {
	r.mu.Lock()
	if _, ok := r.tracked[t.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	r.tracked[t.ID()] = struct{}{}
	r.mu.Unlock()

	if err := r.queue.Enqueue(t); err != nil {
		r.untrack(t.ID())
		return err
	}
	return nil
}

func (r *TaskRunner) isTracked(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tracked[id]
	return ok
}

func (r *TaskRunner) untrack(id uuid.UUID) {
	r.mu.Lock()
	delete(r.tracked, id)
	r.mu.Unlock()
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	defer r.untrack(task.ID())

	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")
	start := time.Now()
	err := task.Execute(ctx)

	// Status updates must land even when shutdown cancelled ctx.
	statusCtx := context.WithoutCancel(ctx)

	switch {
	case err != nil && ctx.Err() != nil:
		log.Warn("task interrupted by shutdown, returning it to pending", "error", err)
		if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusPending, "interrupted by shutdown"); updateErr != nil {
			log.Error("failed to reset interrupted task", "error", updateErr)
		}
	case err != nil:
		if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(task, err)
	default:
		log.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
		if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			log.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}

// stuckTaskMonitor periodically resets tasks that have been processing for
// longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(ctx)
		}
	}
}

// resetStuckTasks returns the number of stuck tasks found.
func (r *TaskRunner) resetStuckTasks(ctx context.Context) int {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return 0
	}
	if len(stuck) > 0 {
		r.logger.Info("found stuck tasks", "count", len(stuck))
	}
	for _, rec := range stuck {
		r.requeue(ctx, rec, true)
	}
	return len(stuck)
}

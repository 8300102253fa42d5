package usecase

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Orchestrator owns the asynchronous execution of generation tasks. Each
// beatmap has at most one live task; a second request while one is running
// is rejected with ErrTaskInProgress rather than queued or coalesced.
type Orchestrator struct {
	tasks    TaskStore
	pipeline ChartPipeline
	timeout  time.Duration
	clock    func() time.Time

	mu     sync.Mutex
	active map[string]*runningTask
	wg     sync.WaitGroup
}

type runningTask struct {
	taskID string
	cancel context.CancelFunc
}

func NewOrchestrator(tasks TaskStore, pipeline ChartPipeline, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		tasks:    tasks,
		pipeline: pipeline,
		timeout:  timeout,
		clock:    time.Now,
		active:   make(map[string]*runningTask),
	}
}

// SetClock overrides the time source. Intended for tests.
func (o *Orchestrator) SetClock(clock func() time.Time) {
	o.clock = clock
}

// Enqueue registers a task for the request's beatmap and starts it in the
// background. The returned task is in the queued state; callers poll
// Progress with its ID.
func (o *Orchestrator) Enqueue(ctx context.Context, req GenerateRequest) (domain.GenerationTask, error) {
	o.mu.Lock()
	if _, busy := o.active[req.BeatmapID]; busy {
		o.mu.Unlock()
		return domain.GenerationTask{}, domain.ErrTaskInProgress
	}

	now := o.clock()
	task := domain.GenerationTask{
		ID:        uuid.NewString(),
		BeatmapID: req.BeatmapID,
		Status:    domain.TaskQueued,
		Progress:  0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	runCtx, cancel := context.WithCancel(context.Background())
	o.active[req.BeatmapID] = &runningTask{taskID: task.ID, cancel: cancel}
	o.mu.Unlock()

	if err := o.tasks.Put(ctx, task); err != nil {
		o.release(req.BeatmapID)
		cancel()
		return domain.GenerationTask{}, err
	}

	o.wg.Add(1)
	go o.run(runCtx, cancel, task, req)
	return task, nil
}

// Progress returns the current view of a task. Terminal records remain
// readable for the store's retention window.
func (o *Orchestrator) Progress(ctx context.Context, taskID string) (*domain.GenerationTask, error) {
	return o.tasks.Get(ctx, taskID)
}

// CancelActive asks the live task for a beatmap, if any, to stop. The task
// observes cancellation at its next stage boundary and finishes in the
// error state.
func (o *Orchestrator) CancelActive(beatmapID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rt, ok := o.active[beatmapID]
	if !ok {
		return false
	}
	rt.cancel()
	return true
}

// Busy reports whether a beatmap has a live task.
func (o *Orchestrator) Busy(beatmapID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[beatmapID]
	return ok
}

// Wait blocks until all running tasks finish. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) release(beatmapID string) {
	o.mu.Lock()
	delete(o.active, beatmapID)
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, task domain.GenerationTask, req GenerateRequest) {
	defer o.wg.Done()
	defer o.release(req.BeatmapID)
	defer cancel()
	if req.CleanupDir != "" {
		defer os.RemoveAll(req.CleanupDir)
	}

	if o.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, o.timeout)
		defer timeoutCancel()
	}

	task.Status = domain.TaskInProgress
	task.Message = "starting"
	task.UpdatedAt = o.clock()
	o.put(task)

	// Progress never moves backward and never reaches 100 before the
	// pipeline returns; the terminal write below owns the final state.
	last := 0
	report := func(percent int, message string) {
		if percent < last {
			percent = last
		}
		if percent > 99 {
			percent = 99
		}
		last = percent
		task.Progress = percent
		task.Message = message
		task.UpdatedAt = o.clock()
		o.put(task)
	}

	err := o.pipeline.Execute(ctx, req, report)
	task.UpdatedAt = o.clock()
	if err != nil {
		task.Status = domain.TaskError
		task.Message = taskErrorMessage(ctx, err)
		o.put(task)
		return
	}
	task.Status = domain.TaskCompleted
	task.Progress = 100
	task.Message = "completed"
	o.put(task)
}

func (o *Orchestrator) put(task domain.GenerationTask) {
	// Task state is advisory; a failed write must not kill the pipeline.
	_ = o.tasks.Put(context.Background(), task)
}

func taskErrorMessage(ctx context.Context, err error) string {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return "generation timed out"
	case context.Canceled:
		return "generation canceled"
	}
	return err.Error()
}

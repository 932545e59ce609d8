package epics

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type task struct {
	cancel context.CancelFunc
}

// Runner tracks named asynchronous tasks with cancellation. Switch-style
// pipelines cancel the previous task registered under the same key,
// merge-style pipelines spawn concurrently.
type Runner struct {
	mu     sync.Mutex
	tasks  map[string]*task
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		tasks:  make(map[string]*task),
		logger: logger,
	}
}

// Switch starts fn under key, cancelling any task already running under the
// same key first. The previous task's context is cancelled exactly once; fn
// must return promptly when its context is done.
func (r *Runner) Switch(ctx context.Context, key string, fn func(context.Context)) {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.tasks[key]; ok {
		prev.cancel()
	}
	r.tasks[key] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			// Only forget the key if it still refers to this task; a newer
			// Switch may already have replaced it.
			if current, ok := r.tasks[key]; ok && current == t {
				delete(r.tasks, key)
			}
			r.mu.Unlock()
		}()
		fn(taskCtx)
	}()
}

// Spawn starts fn concurrently without keyed cancellation.
func (r *Runner) Spawn(ctx context.Context, fn func(context.Context)) {
	taskCtx, cancel := context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		fn(taskCtx)
	}()
}

// Cancel stops the task running under key, if any.
func (r *Runner) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[key]; ok {
		t.cancel()
		delete(r.tasks, key)
	}
}

// CancelAll stops every keyed task.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.tasks {
		t.cancel()
		delete(r.tasks, key)
	}
}

// Wait blocks until every started task returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Running reports whether a task holds the key.
func (r *Runner) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[key]
	return ok
}

// Package worker runs fire-and-forget background tasks with a bounded amount
// of concurrency. Chat turns hand their post-response work (persistence,
// embeddings, pattern recording) to the pool so the HTTP response never waits
// on it.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Task is a named unit of background work. The name only shows up in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pool struct {
	sem     *semaphore.Weighted
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool running at most concurrency tasks at once. Each task
// gets its own context bounded by timeout, detached from the request that
// submitted it.
func NewPool(concurrency int, timeout time.Duration) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:     semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules the task and returns immediately. Errors and panics are
// logged, never propagated; a closed pool drops the task with a warning.
func (p *Pool) Submit(task Task) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		slog.Warn("worker pool closed, dropping task", "task", task.Name)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			slog.Warn("worker pool shutting down, dropping task", "task", task.Name)
			return
		}
		defer p.sem.Release(1)
		p.run(task)
	}()
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background task panicked", "task", task.Name, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		slog.Warn("background task failed", "task", task.Name, "err", err, "elapsed", time.Since(start))
		return
	}
	slog.Debug("background task done", "task", task.Name, "elapsed", time.Since(start))
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ PoolInterface = (*Pool)(nil)

const (
	DefaultRetryDelay  = time.Second
	DefaultTaskTimeout = 5 * time.Minute
	maxRetryDelay      = 30 * time.Second
)

// Pool runs tasks on a fixed number of workers. Failed tasks are retried
// with exponential backoff until they run out of retries.
type Pool struct {
	workerCount int
	retryDelay  time.Duration
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewPool(workerCount, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = workerCount
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workerCount: workerCount,
		retryDelay:  DefaultRetryDelay,
		taskTimeout: DefaultTaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

// SetRetryDelay sets the delay before the first retry; later retries double it.
func (p *Pool) SetRetryDelay(d time.Duration) {
	p.retryDelay = d
}

// SetTaskTimeout bounds a single execution of a task.
func (p *Pool) SetTaskTimeout(d time.Duration) {
	p.taskTimeout = d
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	slog.Debug("Worker pool started", "workers", p.workerCount)
}

// Stop cancels running tasks and waits for the workers. Tasks still queued
// finish with context.Canceled.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	close(p.taskQueue)

	for task := range p.taskQueue {
		task.Finish(context.Canceled)
	}
}

// Submit queues a task, waiting for room in the queue.
func (p *Pool) Submit(ctx context.Context, task TaskInterface) error {
	select {
	case p.taskQueue <- task:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.executeTask(id, task)

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(p.ctx, p.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		slog.Debug("Task completed", "worker_id", workerID, "type", string(task.GetType()), "owner", task.GetOwner(), "duration", task.GetDuration())
		task.Finish(nil)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if p.ctx.Err() != nil || IsPermanent(err) || !task.CanRetry() {
		if task.CanRetry() {
			slog.Debug("Task not retried", "type", string(task.GetType()), "id", task.GetID())
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		task.Finish(err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := p.retryDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "owner", task.GetOwner(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-p.ctx.Done():
			slog.Debug("Pool stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			task.Finish(fmt.Errorf("retry cancelled: %w", err))
			return
		case <-timer.C:
		}

		if retryErr := p.Submit(p.ctx, task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			task.Finish(err)
		}
	}()
}

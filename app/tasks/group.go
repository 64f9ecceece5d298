package tasks

import (
	"context"
	"errors"
	"sync"
)

// Group tracks a batch of tasks submitted to a pool until each of them has
// reached its final outcome, retries included.
type Group struct {
	pool   *Pool
	wg     sync.WaitGroup
	mu     sync.Mutex
	failed []error
}

func (p *Pool) NewGroup() *Group {
	return &Group{pool: p}
}

// Go submits task to the pool. If the task cannot be queued it is finished
// with the submit error, which is also returned.
func (g *Group) Go(ctx context.Context, task TaskInterface) error {
	g.wg.Add(1)
	task.OnFinish(func(err error) {
		if err != nil {
			g.mu.Lock()
			g.failed = append(g.failed, err)
			g.mu.Unlock()
		}
		g.wg.Done()
	})

	if err := g.pool.Submit(ctx, task); err != nil {
		task.Finish(err)
		return err
	}
	return nil
}

// Wait blocks until every task has finished and returns their joined errors.
func (g *Group) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.failed...)
}

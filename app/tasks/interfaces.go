package tasks

import "context"

// PoolInterface defines the worker pool operations used by the importer.
//
//	pool := NewPool(4, 64)
//	pool.Start()
//	defer pool.Stop()
//	group := pool.NewGroup()
//	group.Go(ctx, NewDownloadMediaTask(...))
//	group.Wait()
type PoolInterface interface {
	Start()
	Stop()
	Submit(ctx context.Context, task TaskInterface) error
	NewGroup() *Group
}

package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds the number of concurrent backend calls (search, rerank)
// shared by every in-flight query.
type workerPool struct {
	sem *semaphore.Weighted
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

// do runs fn once a slot is free. The slot is released when fn returns.
func (p *workerPool) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker: %w", err)
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

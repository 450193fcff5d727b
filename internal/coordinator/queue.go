package coordinator

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Queue runs jobs one at a time in arrival order. A job is only started once
// the previous job has returned.
type Queue struct {
	sem *semaphore.Weighted
}

// NewQueue creates a queue of concurrency 1
func NewQueue() *Queue {
	return &Queue{sem: semaphore.NewWeighted(1)}
}

// Do waits for the queue, then runs fn. Waiters are served first in, first out.
func (q *Queue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer q.sem.Release(1)
	return fn(ctx)
}

package orchestrator

import "context"

// Queue hands job ids to workers. The transport is external in production;
// MemoryQueue is the in-process default.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (string, error)
}

// MemoryQueue is a channel-backed queue
type MemoryQueue struct {
	jobs chan string
}

// NewMemoryQueue creates a queue with the given buffer capacity
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{jobs: make(chan string, capacity)}
}

// Enqueue adds a job id, blocking when the buffer is full
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.jobs <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job id is available or the context ends
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case jobID := <-q.jobs:
		return jobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

package gojob

import (
	"context"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// MemoryQueue is a process-local go-job queue for single-instance
// deployments. Pending messages are deduplicated by idempotency key and
// delayed nacks become visible again once their delay elapses.
type MemoryQueue struct {
	Now func() time.Time

	mu         sync.Mutex
	pending    []memoryEntry
	inFlight   map[string]bool
	deadLetter []*job.ExecutionMessage
}

type memoryEntry struct {
	msg     *job.ExecutionMessage
	readyAt time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		Now:      func() time.Time { return time.Now().UTC() },
		inFlight: map[string]bool{},
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if msg == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		if q.inFlight[key] {
			return nil
		}
		for _, entry := range q.pending {
			if entry.msg.IdempotencyKey == key {
				return nil
			}
		}
	}
	q.pending = append(q.pending, memoryEntry{msg: msg, readyAt: q.now()})
	return nil
}

func (q *MemoryQueue) Dequeue(context.Context) (queue.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for i, entry := range q.pending {
		if entry.readyAt.After(now) {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		if key := entry.msg.IdempotencyKey; key != "" {
			q.inFlight[key] = true
		}
		return &memoryDelivery{queue: q, msg: entry.msg}, nil
	}
	return nil, ErrNoDelivery
}

// Len reports pending messages, including delayed ones.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *MemoryQueue) DeadLetters() []*job.ExecutionMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*job.ExecutionMessage(nil), q.deadLetter...)
}

func (q *MemoryQueue) settle(msg *job.ExecutionMessage, opts *queue.NackOptions) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, msg.IdempotencyKey)
	if opts == nil {
		return
	}
	switch {
	case opts.Requeue:
		q.pending = append(q.pending, memoryEntry{msg: msg, readyAt: q.now().Add(opts.Delay)})
	case opts.DeadLetter:
		q.deadLetter = append(q.deadLetter, msg)
	}
}

func (q *MemoryQueue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now().UTC()
}

type memoryDelivery struct {
	queue *MemoryQueue
	msg   *job.ExecutionMessage
	once  sync.Once
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error {
	d.once.Do(func() { d.queue.settle(d.msg, nil) })
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.once.Do(func() { d.queue.settle(d.msg, &opts) })
	return nil
}

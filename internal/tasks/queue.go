// Package tasks implements the async task processor (C10): a bounded
// FIFO of task envelopes, a configurable block-or-drop overflow
// policy, and a single background drainer that batches by type and
// hands each batch to its per-type processor.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
)

// OverflowPolicy is the closed choice of what enqueue does when the
// queue is full: the spec requires exactly one behavior, never both
// silently.
type OverflowPolicy string

const (
	OverflowBlock OverflowPolicy = "block"
	OverflowDrop  OverflowPolicy = "drop"
)

// ErrDropped is returned by Enqueue under OverflowDrop when the queue
// was full at the time of the call.
var ErrDropped = fmt.Errorf("tasks: queue full, envelope dropped")

// Queue is the bounded FIFO producers enqueue into and the drainer
// pops from.
type Queue struct {
	ch     chan domain.TaskEnvelope
	policy OverflowPolicy
}

// NewQueue creates a Queue with the given capacity and overflow
// policy.
func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if policy == "" {
		policy = OverflowBlock
	}
	return &Queue{ch: make(chan domain.TaskEnvelope, capacity), policy: policy}
}

// Enqueue adds an envelope to the queue. Under OverflowBlock it blocks
// until space frees up or ctx is cancelled. Under OverflowDrop it
// returns ErrDropped immediately instead of blocking.
func (q *Queue) Enqueue(ctx context.Context, typ domain.TaskType, data interface{}) error {
	env := domain.TaskEnvelope{ID: uuid.New().String(), Type: typ, Data: data, EnqueuedAt: time.Now().UTC()}

	switch q.policy {
	case OverflowDrop:
		select {
		case q.ch <- env:
			return nil
		default:
			return ErrDropped
		}
	default:
		select {
		case q.ch <- env:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// popBatch drains up to n envelopes without blocking once the first
// one has arrived (or blocks for the first one until ctx is done).
func (q *Queue) popBatch(ctx context.Context, n int) ([]domain.TaskEnvelope, bool) {
	var first domain.TaskEnvelope
	select {
	case env, ok := <-q.ch:
		if !ok {
			return nil, false
		}
		first = env
	case <-ctx.Done():
		return nil, false
	}

	batch := []domain.TaskEnvelope{first}
	for len(batch) < n {
		select {
		case env, ok := <-q.ch:
			if !ok {
				return batch, true
			}
			batch = append(batch, env)
		default:
			return batch, true
		}
	}
	return batch, true
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"xpost/internal/post"
)

const DefaultCapacity = 5

// OverflowPolicy decides what Enqueue does when the queue is full.
type OverflowPolicy int

const (
	// OverflowBlock suspends the producer until there is room.
	OverflowBlock OverflowPolicy = iota
	// OverflowDropOldest evicts the head of the queue to make room.
	OverflowDropOldest
	// OverflowDropNewest discards the item being enqueued.
	OverflowDropNewest
	// OverflowReject returns ErrQueueFull to the producer.
	OverflowReject
)

var overflowNames = map[OverflowPolicy]string{
	OverflowBlock:      "block",
	OverflowDropOldest: "drop-oldest",
	OverflowDropNewest: "drop-newest",
	OverflowReject:     "reject",
}

func (p OverflowPolicy) String() string {
	if s, ok := overflowNames[p]; ok {
		return s
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// ParseOverflow parses "block", "drop-oldest", "drop-newest" or "reject".
func ParseOverflow(s string) (OverflowPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range overflowNames {
		if s == name {
			return p, nil
		}
	}
	return OverflowBlock, fmt.Errorf("unknown overflow policy %q (want block, drop-oldest, drop-newest or reject)", s)
}

// DropReason says why an item left the queue without being dispatched.
type DropReason string

const (
	DropOverflow  DropReason = "overflow"
	DropCancelled DropReason = "cancelled"
)

// QueueConfig configures a Queue.
//
// OnDrop is called for every item that is discarded instead of dispatched. It
// runs on the goroutine that caused the drop, outside the queue lock.
type QueueConfig struct {
	Capacity int
	Overflow OverflowPolicy
	OnDrop   func(item post.WorkItem, reason DropReason)
}

// Queue is a bounded FIFO of WorkItems with an explicit completion signal.
type Queue struct {
	mu       sync.Mutex
	items    []post.WorkItem
	capacity int
	overflow OverflowPolicy
	onDrop   func(post.WorkItem, DropReason)
	done     bool

	// changed is closed (and replaced) whenever items or done change.
	changed chan struct{}
}

func NewQueue(cfg QueueConfig) *Queue {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		items:    make([]post.WorkItem, 0, capacity),
		capacity: capacity,
		overflow: cfg.Overflow,
		onDrop:   cfg.OnDrop,
		changed:  make(chan struct{}),
	}
}

func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Finished reports whether Complete was called and every item was taken.
func (q *Queue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done && len(q.items) == 0
}

// broadcastLocked wakes every waiter. Call with mu held.
func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func (q *Queue) notify(item post.WorkItem, reason DropReason) {
	if q.onDrop != nil && item != nil {
		q.onDrop(item, reason)
	}
}

// TryEnqueue adds item if there is room right now. It never blocks or drops.
// A nil item is never added.
func (q *Queue) TryEnqueue(item post.WorkItem) bool {
	if item == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done || len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, item)
	q.broadcastLocked()
	return true
}

// Enqueue adds item, applying the overflow policy when the queue is full.
//
// Under OverflowBlock it waits for room, for Complete (ErrCompleted) or for
// ctx to end (ctx.Err()). OverflowDropNewest returns ErrDropped after notifying
// OnDrop, OverflowReject returns ErrQueueFull. A nil item is rejected with
// ErrNilItem.
func (q *Queue) Enqueue(ctx context.Context, item post.WorkItem) error {
	if item == nil {
		return ErrNilItem
	}
	for {
		q.mu.Lock()
		if q.done {
			q.mu.Unlock()
			return ErrCompleted
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, item)
			q.broadcastLocked()
			q.mu.Unlock()
			return nil
		}

		switch q.overflow {
		case OverflowDropOldest:
			old := q.items[0]
			q.items[0] = nil
			q.items = append(q.items[1:], item)
			q.broadcastLocked()
			q.mu.Unlock()
			q.notify(old, DropOverflow)
			return nil
		case OverflowDropNewest:
			q.mu.Unlock()
			q.notify(item, DropOverflow)
			return ErrDropped
		case OverflowReject:
			q.mu.Unlock()
			return ErrQueueFull
		}

		wait := q.changed
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// Dequeue takes the oldest item, waiting until one is available.
// Once the queue is completed and empty it returns ErrEndOfStream, every time.
func (q *Queue) Dequeue(ctx context.Context) (post.WorkItem, error) {
	for {
		// Cancellation wins over queued work.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.broadcastLocked()
			q.mu.Unlock()
			return item, nil
		}
		if q.done {
			q.mu.Unlock()
			return nil, ErrEndOfStream
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// Complete marks that no more items will be enqueued. Items already queued
// stay available to Dequeue. Calling it again has no effect.
func (q *Queue) Complete() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done {
		return
	}
	q.done = true
	q.broadcastLocked()
}

// Abandon completes the queue and removes every queued item, reporting each
// one to OnDrop with reason. It returns how many items were removed.
func (q *Queue) Abandon(reason DropReason) int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.done = true
	q.broadcastLocked()
	q.mu.Unlock()

	for _, it := range items {
		q.notify(it, reason)
	}
	return len(items)
}

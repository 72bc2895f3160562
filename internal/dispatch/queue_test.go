package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpost/internal/post"
)

func item(dest string) post.WorkItem {
	return post.TextWork{Title: "t", Destination: dest, Body: "b"}
}

type dropLog struct {
	mu    sync.Mutex
	dests []string
	why   []DropReason
}

func (d *dropLog) onDrop(it post.WorkItem, reason DropReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dests = append(d.dests, it.DestinationName())
	d.why = append(d.why, reason)
}

func (d *dropLog) snapshot() ([]string, []DropReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dests...), append([]DropReason(nil), d.why...)
}

func drain(t *testing.T, q *Queue) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var out []string
	for {
		it, err := q.Dequeue(ctx)
		if err == ErrEndOfStream {
			return out
		}
		require.NoError(t, err)
		out = append(out, it.DestinationName())
	}
}

func TestQueueFIFO(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 3})
	ctx := context.Background()
	for _, d := range []string{"x", "y", "z"} {
		require.NoError(t, q.Enqueue(ctx, item(d)))
	}
	q.Complete()
	assert.Equal(t, []string{"x", "y", "z"}, drain(t, q))
}

func TestQueueDefaultCapacity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultCapacity, NewQueue(QueueConfig{}).Cap())
}

func TestQueueBlocksProducerUntilSpace(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 2})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, item("a")))
	require.NoError(t, q.Enqueue(ctx, item("b")))
	assert.False(t, q.TryEnqueue(item("c")))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, item("c")) }()

	select {
	case err := <-done:
		t.Fatalf("third Enqueue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.DestinationName())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("third Enqueue still blocked after Dequeue")
	}
	q.Complete()
	assert.Equal(t, []string{"b", "c"}, drain(t, q))
}

func TestQueueCompleteIsStickyAndIdempotent(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 2})
	require.True(t, q.TryEnqueue(item("a")))
	q.Complete()
	q.Complete()

	assert.ErrorIs(t, q.Enqueue(context.Background(), item("late")), ErrCompleted)
	assert.False(t, q.TryEnqueue(item("late")))
	assert.False(t, q.Finished())

	assert.Equal(t, []string{"a"}, drain(t, q))
	assert.True(t, q.Finished())
	for i := 0; i < 3; i++ {
		_, err := q.Dequeue(context.Background())
		assert.ErrorIs(t, err, ErrEndOfStream)
	}
}

func TestQueueCompleteWakesBlockedConsumer(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 1})
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	q.Complete()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrEndOfStream)
	case <-time.After(time.Second):
		t.Fatal("Dequeue not woken by Complete")
	}
}

func TestQueueCompleteWakesBlockedProducer(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 1})
	require.True(t, q.TryEnqueue(item("a")))
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(context.Background(), item("b")) }()
	time.Sleep(20 * time.Millisecond)
	q.Complete()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCompleted)
	case <-time.After(time.Second):
		t.Fatal("Enqueue not woken by Complete")
	}
}

func TestQueueCancelSuspendedCalls(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 1})
	ctx, cancel := context.WithCancel(context.Background())

	deq := make(chan error, 1)
	go func() {
		_, err := NewQueue(QueueConfig{Capacity: 1}).Dequeue(ctx)
		deq <- err
	}()
	require.True(t, q.TryEnqueue(item("a")))
	enq := make(chan error, 1)
	go func() { enq <- q.Enqueue(ctx, item("b")) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	for _, ch := range []chan error{deq, enq} {
		select {
		case err := <-ch:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("suspended call not cancelled")
		}
	}
}

func TestQueueOverflowPolicies(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		policy    OverflowPolicy
		wantErr   error
		wantQueue []string
		wantDrops []string
	}{
		{name: "drop oldest", policy: OverflowDropOldest, wantQueue: []string{"b", "c"}, wantDrops: []string{"a"}},
		{name: "drop newest", policy: OverflowDropNewest, wantErr: ErrDropped, wantQueue: []string{"a", "b"}, wantDrops: []string{"c"}},
		{name: "reject", policy: OverflowReject, wantErr: ErrQueueFull, wantQueue: []string{"a", "b"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var drops dropLog
			q := NewQueue(QueueConfig{Capacity: 2, Overflow: tt.policy, OnDrop: drops.onDrop})
			ctx := context.Background()
			require.NoError(t, q.Enqueue(ctx, item("a")))
			require.NoError(t, q.Enqueue(ctx, item("b")))

			err := q.Enqueue(ctx, item("c"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			q.Complete()
			assert.Equal(t, tt.wantQueue, drain(t, q))
			dests, why := drops.snapshot()
			assert.Equal(t, tt.wantDrops, dests)
			for _, r := range why {
				assert.Equal(t, DropOverflow, r)
			}
		})
	}
}

func TestQueueAbandonNotifiesEveryItem(t *testing.T) {
	t.Parallel()
	var drops dropLog
	q := NewQueue(QueueConfig{Capacity: 3, OnDrop: drops.onDrop})
	require.True(t, q.TryEnqueue(item("a")))
	require.True(t, q.TryEnqueue(item("b")))

	assert.Equal(t, 2, q.Abandon(DropCancelled))
	dests, why := drops.snapshot()
	assert.Equal(t, []string{"a", "b"}, dests)
	assert.Equal(t, []DropReason{DropCancelled, DropCancelled}, why)
	assert.True(t, q.Finished())
}

func TestQueueRejectsNilItem(t *testing.T) {
	t.Parallel()
	q := NewQueue(QueueConfig{Capacity: 2})
	assert.False(t, q.TryEnqueue(nil))
	require.ErrorIs(t, q.Enqueue(context.Background(), nil), ErrNilItem)
	assert.Zero(t, q.Len())

	q.Complete()
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestParseOverflow(t *testing.T) {
	t.Parallel()
	for _, p := range []OverflowPolicy{OverflowBlock, OverflowDropOldest, OverflowDropNewest, OverflowReject} {
		got, err := ParseOverflow(" " + p.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseOverflow("spill")
	assert.Error(t, err)
}

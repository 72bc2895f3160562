package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"xpost/internal/post"
	logx "xpost/pkg/logx"
)

const DefaultPace = 10 * time.Second

// Creator creates one post. Implementations need not be safe for concurrent use;
// the Dispatcher never calls Create concurrently.
type Creator interface {
	Create(ctx context.Context, item post.WorkItem) error
}

// Status is the outcome of one work item.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusDropped Status = "dropped"
)

// Outcome describes what happened to one work item.
type Outcome struct {
	Item   post.WorkItem
	Status Status
	Err    error
	At     time.Time
	Took   time.Duration
}

// Recorder persists outcomes. Record errors are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// State is the Dispatcher's position in its loop.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateProcessing
	StatePacing
	StateDrained
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	case StatePacing:
		return "pacing"
	case StateDrained:
		return "drained"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

type Config struct {
	// Pace is the pause after each create. Zero disables pacing.
	Pace     time.Duration
	Recorder Recorder
}

// Summary counts the outcomes of a Run.
type Summary struct {
	Sent      int
	Failed    int
	Abandoned int
}

// Dispatcher drains a Queue into a Creator, one item at a time.
type Dispatcher struct {
	cfg    Config
	queue  *Queue
	client Creator
	log    logx.Logger

	state atomic.Int32
}

func New(cfg Config, queue *Queue, client Creator, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{cfg: cfg, queue: queue, client: client, log: log}
}

func (d *Dispatcher) State() State { return State(d.state.Load()) }

func (d *Dispatcher) setState(s State) { d.state.Store(int32(s)) }

// Run processes items until the queue is completed and drained, or ctx ends.
//
// On cancellation every item still queued is abandoned (and reported through
// the queue's OnDrop) and ctx.Err() is returned.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	start := time.Now()
	d.log.Debug("dispatcher started", logx.Duration("pace", d.cfg.Pace), logx.Int("queue_cap", d.queue.Cap()))

	cancelled := func(err error) (Summary, error) {
		sum.Abandoned += d.queue.Abandon(DropCancelled)
		d.setState(StateCancelled)
		d.log.Warn("dispatcher cancelled", logx.Int("sent", sum.Sent), logx.Int("failed", sum.Failed), logx.Int("abandoned", sum.Abandoned), logx.Err(err))
		return sum, err
	}

	for {
		d.setState(StateWaiting)
		item, err := d.queue.Dequeue(ctx)
		if errors.Is(err, ErrEndOfStream) {
			d.setState(StateDrained)
			d.log.Info("dispatcher drained", logx.Int("sent", sum.Sent), logx.Int("failed", sum.Failed), logx.Duration("dur", time.Since(start)))
			return sum, nil
		}
		if err != nil {
			return cancelled(err)
		}

		d.setState(StateProcessing)
		if d.process(ctx, item) == nil {
			sum.Sent++
		} else {
			sum.Failed++
		}

		// Nothing left to pace against.
		if d.queue.Finished() {
			continue
		}
		d.setState(StatePacing)
		if err := sleepCtx(ctx, d.cfg.Pace); err != nil {
			return cancelled(err)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, item post.WorkItem) (err error) {
	log := d.log.With(logx.String("destination", item.DestinationName()), logx.String("kind", string(item.Kind())))
	log.Info("creating post", logx.String("title", item.PostTitle()))

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in create", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = errors.New("panic in create")
			}
		}()
		err = d.client.Create(ctx, item)
	}()
	took := time.Since(start)

	o := Outcome{Item: item, Status: StatusSent, At: time.Now(), Took: took}
	if err != nil {
		err = &CreateError{Destination: item.DestinationName(), Kind: item.Kind(), Err: err}
		o.Status = StatusFailed
		o.Err = err
		log.Warn("create post failed", logx.Duration("took", took), logx.Err(err))
	} else {
		log.Info("post created", logx.Duration("took", took))
	}
	d.record(ctx, o)
	return err
}

func (d *Dispatcher) record(ctx context.Context, o Outcome) {
	if d.cfg.Recorder == nil {
		return
	}
	// Record even when ctx is already cancelled.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.cfg.Recorder.Record(rctx, o); err != nil {
		d.log.Debug("record outcome failed", logx.String("destination", o.Item.DestinationName()), logx.Err(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	select {
	case <-ctx.Done():
		tmr.Stop()
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

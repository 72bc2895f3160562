package app

import (
	"context"
	"time"

	"xpost/internal/dispatch"
	"xpost/internal/post"
	"xpost/internal/storage"
)

// journal writes dispatch outcomes to the delivery store.
type journal struct {
	store storage.Store
	runID string
}

func (j *journal) Record(ctx context.Context, o dispatch.Outcome) error {
	d := storage.Delivery{
		At:          o.At,
		RunID:       j.runID,
		Destination: o.Item.DestinationName(),
		Kind:        string(o.Item.Kind()),
		Title:       o.Item.PostTitle(),
		Status:      string(o.Status),
		TookMS:      o.Took.Milliseconds(),
	}
	if o.Err != nil {
		d.Error = o.Err.Error()
	}
	return j.store.AppendDelivery(ctx, d)
}

// dropped journals an item the queue discarded. Errors are ignored; the drop
// itself is already logged.
func (j *journal) dropped(item post.WorkItem, reason dispatch.DropReason) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = j.Record(ctx, dispatch.Outcome{
		Item:   item,
		Status: dispatch.StatusDropped,
		Err:    dropError(reason),
		At:     time.Now(),
	})
}

type dropError dispatch.DropReason

func (e dropError) Error() string { return "dropped: " + string(e) }

// Package dispatch moves WorkItems from a producer to the content API.
//
// # Queue
//
// Queue is a bounded FIFO shared by exactly one producer and one consumer. Its
// behaviour when full is an explicit OverflowPolicy. The producer signals the
// end of work with Complete; the consumer then drains what is left and sees
// ErrEndOfStream.
//
// # Dispatcher
//
// Dispatcher is the consumer. It forwards one item at a time to a Creator and
// waits a fixed pace between calls. A failed create is logged and recorded;
// the loop keeps going.
//
// # Cancellation
//
// Every suspending call takes a context. When the Dispatcher is cancelled it
// abandons the queue, so each undelivered item is reported through the
// queue's OnDrop callback instead of disappearing.
package dispatch

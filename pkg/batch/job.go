// Package batch runs a unit of work over an ordered list of items on a single
// background goroutine, publishing progress snapshots and completion events
// to a consumer that may read them at its own pace, and supporting
// cooperative cancellation at item boundaries.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSkip may be returned by a WorkFunc to drop an item without logging it
// as a failure.
var ErrSkip = errors.New("item skipped")

// WorkFunc processes one item. A non-nil error skips the item: it is not
// counted as processed and no snapshot is published for it.
type WorkFunc[R any] func(ctx context.Context, item string) (R, error)

// State is the lifecycle position of a Job.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCancelling
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a job's progress. A new value is
// published after every processed item.
type Snapshot[R any] struct {
	// Percent is 100 * counted items / total items.
	Percent float64
	// Attempted counts items the worker has finished with, processed or not.
	Attempted int
	// Processed counts items whose unit of work succeeded.
	Processed int
	Total     int
	// LastItem and LastResult belong to the most recently processed item.
	LastItem   string
	LastResult R
}

// Job is one pass of a WorkFunc over a list of items.
type Job[R any] struct {
	items []string
	work  WorkFunc[R]
	opts  options[R]

	state  atomic.Int32
	cancel atomic.Bool

	mu        sync.Mutex
	snap      *Snapshot[R]
	completed []string

	events chan Event
	done   chan struct{}
}

// New prepares a job without starting it.
func New[R any](items []string, work WorkFunc[R], opts ...Option[R]) *Job[R] {
	o := defaultOptions[R]()
	for _, opt := range opts {
		opt(&o)
	}

	list := make([]string, len(items))
	copy(list, items)

	j := &Job[R]{
		items:  list,
		work:   work,
		opts:   o,
		snap:   &Snapshot[R]{Total: len(list)},
		events: make(chan Event, len(list)+1),
		done:   make(chan struct{}),
	}
	j.state.Store(int32(StateIdle))
	return j
}

// Start creates a job and launches its worker.
func Start[R any](ctx context.Context, items []string, work WorkFunc[R], opts ...Option[R]) *Job[R] {
	j := New(items, work, opts...)
	j.Start(ctx)
	return j
}

// Start launches the single worker goroutine. Calling Start on a job that is
// not idle does nothing.
func (j *Job[R]) Start(ctx context.Context) {
	if !j.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return
	}
	j.opts.logger.Debug().Int("items", len(j.items)).Msg("job started")
	go j.run(ctx)
}

func (j *Job[R]) run(ctx context.Context) {
	log := j.opts.logger
	attempted, processed := 0, 0
	cancelled := false

	for i, item := range j.items {
		if j.stopRequested(ctx) {
			cancelled = true
			break
		}

		result, err := j.work(ctx, item)
		attempted++
		if err != nil {
			if !errors.Is(err, ErrSkip) {
				log.Debug().Err(err).Str("item", item).Msg("item failed, skipping")
			}
			if j.opts.countAttempts {
				j.publish(attempted, processed, nil, nil)
			}
		} else {
			processed++
			if j.opts.clone != nil {
				result = j.opts.clone(result)
			}
			j.publish(attempted, processed, &item, &result)
			j.events <- Event{Kind: ItemDone, Index: i, Item: item}
		}

		if j.stopRequested(ctx) {
			cancelled = attempted < len(j.items)
			break
		}
	}

	j.mu.Lock()
	final := *j.snap
	j.mu.Unlock()

	log.Debug().
		Int("processed", final.Processed).
		Int("attempted", final.Attempted).
		Bool("cancelled", cancelled).
		Msg("job finished")

	j.state.Store(int32(StateFinished))
	j.events <- Event{Kind: JobDone, Index: -1, Cancelled: cancelled}
	close(j.events)
	close(j.done)
}

func (j *Job[R]) stopRequested(ctx context.Context) bool {
	return j.cancel.Load() || ctx.Err() != nil
}

// publish swaps in a new snapshot. item and result are nil when the
// previous last-item fields should be carried over.
func (j *Job[R]) publish(attempted, processed int, item *string, result *R) {
	total := len(j.items)
	counted := processed
	if j.opts.countAttempts {
		counted = attempted
	}
	percent := 0.0
	if total > 0 {
		percent = 100 * float64(counted) / float64(total)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	next := &Snapshot[R]{
		Percent:    percent,
		Attempted:  attempted,
		Processed:  processed,
		Total:      total,
		LastItem:   j.snap.LastItem,
		LastResult: j.snap.LastResult,
	}
	if item != nil {
		next.LastItem = *item
		next.LastResult = *result
		j.completed = append(j.completed, *item)
	}
	j.snap = next
}

// RequestCancel asks the worker to stop after the item in flight. It returns
// false when the job has already finished, in which case there is nothing to
// cancel and the caller may close right away.
func (j *Job[R]) RequestCancel() bool {
	for {
		s := State(j.state.Load())
		switch s {
		case StateFinished:
			return false
		case StateCancelling:
			return true
		case StateIdle:
			// The worker observes the flag as soon as it starts.
			j.cancel.Store(true)
			return true
		}
		j.cancel.Store(true)
		if j.state.CompareAndSwap(int32(s), int32(StateCancelling)) {
			j.opts.logger.Debug().Msg("cancel requested")
			return true
		}
	}
}

// CancelRequested reports whether RequestCancel was accepted.
func (j *Job[R]) CancelRequested() bool {
	return j.cancel.Load()
}

// State returns the current lifecycle state.
func (j *Job[R]) State() State {
	return State(j.state.Load())
}

// Snapshot returns the latest published progress.
func (j *Job[R]) Snapshot() Snapshot[R] {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *j.snap
}

// Completed lists the processed items in processing order.
func (j *Job[R]) Completed() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.completed))
	copy(out, j.completed)
	return out
}

// Events delivers one ItemDone per processed item, in order, followed by a
// single JobDone, after which the channel is closed. The worker never blocks
// on this channel.
func (j *Job[R]) Events() <-chan Event {
	return j.events
}

// Done is closed once the worker has exited.
func (j *Job[R]) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the worker exits or ctx is done and returns the latest
// snapshot.
func (j *Job[R]) Wait(ctx context.Context) (Snapshot[R], error) {
	select {
	case <-j.done:
		return j.Snapshot(), nil
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

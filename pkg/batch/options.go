package batch

import "github.com/rs/zerolog"

// EventKind distinguishes per-item and end-of-job notifications.
type EventKind int

const (
	ItemDone EventKind = iota
	JobDone
)

func (k EventKind) String() string {
	if k == JobDone {
		return "job-done"
	}
	return "item-done"
}

// Event is a notification posted by the worker. It carries no progress data:
// consumers read Job.Snapshot, which may already reflect later items.
type Event struct {
	Kind EventKind
	// Index is the item's position in the job list; -1 for JobDone.
	Index int
	Item  string
	// Cancelled is set on JobDone when the worker stopped early.
	Cancelled bool
}

type options[R any] struct {
	logger        zerolog.Logger
	clone         func(R) R
	countAttempts bool
}

func defaultOptions[R any]() options[R] {
	return options[R]{logger: zerolog.Nop()}
}

// Option configures a Job.
type Option[R any] func(*options[R])

// WithLogger sets the logger used for job lifecycle and skipped items.
func WithLogger[R any](l zerolog.Logger) Option[R] {
	return func(o *options[R]) {
		o.logger = l
	}
}

// WithClone copies each result before it is published, so the snapshot never
// aliases memory the unit of work still holds.
func WithClone[R any](clone func(R) R) Option[R] {
	return func(o *options[R]) {
		o.clone = clone
	}
}

// CountAttempts computes Percent from every item the worker has finished
// with, including skipped ones. Folder scans use it because most files are
// expected to be rejected.
func CountAttempts[R any]() Option[R] {
	return func(o *options[R]) {
		o.countAttempts = true
	}
}

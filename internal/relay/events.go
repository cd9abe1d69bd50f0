package relay

import (
	"context"
	"errors"
	"iter"
)

var errStopped = errors.New("relay: iteration stopped")

// Events returns the events of one run as a pull iterator. The exchange
// starts when iteration begins; breaking out of the loop cancels it and
// closes the upstream stream.
func (r *Relay) Events(ctx context.Context, q Query) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		_ = r.Run(ctx, q, SinkFunc(func(ev Event) error {
			if !yield(ev) {
				return errStopped
			}
			return nil
		}))
	}
}

// Collect runs q to completion and returns every event it produced. The
// error is non-nil only if ctx ended first.
func (r *Relay) Collect(ctx context.Context, q Query) ([]Event, error) {
	var events []Event
	err := r.Run(ctx, q, SinkFunc(func(ev Event) error {
		events = append(events, ev)
		return nil
	}))
	return events, err
}

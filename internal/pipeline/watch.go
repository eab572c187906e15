package pipeline

import (
	"context"
	"errors"
	"time"

	"mantrify/internal/api"
	"mantrify/internal/queue"
)

// Source fetches the current snapshot of a queue record. It returns nil, nil
// when the record no longer exists.
type Source interface {
	QueueRecord(ctx context.Context, queueID int64) (*queue.Record, error)
}

// Update is one event from Watch: either a fresh observation or a fetch error
// paired with the tracker state after counting the failed poll.
type Update struct {
	Observation
	Err error
}

// Fatal reports whether a fetch error ends the watch. Credential and privilege
// failures are fatal; transient failures are reported and polling continues.
func Fatal(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden)
}

// Watch polls src for the tracker's record until the outcome is terminal, a
// fatal error occurs or ctx is canceled, then closes the returned channel.
// Canceling leaves the tracker's last observation untouched.
func Watch(ctx context.Context, src Source, t *Tracker) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		send := func(u Update) bool {
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			rec, err := src.QueueRecord(ctx, t.QueueID())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if Fatal(err) {
					last, _ := t.Last()
					send(Update{Observation: last, Err: err})
					return
				}
				obs := t.ObserveError(err)
				if !send(Update{Observation: obs, Err: err}) || obs.Outcome.Terminal() {
					return
				}
			} else {
				obs := t.Observe(rec)
				if !send(Update{Observation: obs}) || obs.Outcome.Terminal() {
					return
				}
			}
			timer.Reset(t.Policy().pollInterval())
		}
	}()
	return out
}

// Wait runs Watch to completion, invoking onUpdate for every update when
// non-nil. It returns the final observation. On cancellation it returns the
// last observation with ctx.Err(); on a fatal fetch error it returns that
// error.
func Wait(ctx context.Context, src Source, t *Tracker, onUpdate func(Update)) (Observation, error) {
	var fatal error
	for u := range Watch(ctx, src, t) {
		if onUpdate != nil {
			onUpdate(u)
		}
		if u.Err != nil && Fatal(u.Err) {
			fatal = u.Err
		}
	}
	last, _ := t.Last()
	if fatal != nil {
		return last, fatal
	}
	if !last.Outcome.Terminal() {
		if err := ctx.Err(); err != nil {
			return last, err
		}
	}
	return last, nil
}

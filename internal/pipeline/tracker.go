package pipeline

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"mantrify/internal/logging"
	"mantrify/internal/queue"
)

// Outcome is the tracking verdict for a job.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeDone
	OutcomeRemoved
	OutcomeGaveUp
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeDone:
		return "done"
	case OutcomeRemoved:
		return "removed"
	case OutcomeGaveUp:
		return "gave up"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling is useful.
func (o Outcome) Terminal() bool {
	return o != OutcomePending
}

// Completed reports whether the job produced its audio.
func (o Outcome) Completed() bool {
	return o == OutcomeDone
}

// Observation is the tracker state after one poll.
type Observation struct {
	QueueID int64
	// Status is the latest accepted status; it never moves backwards.
	Status queue.Status
	// Reported is the status carried by the polled record, which may be
	// earlier than Status when Regressed is set.
	Reported queue.Status
	Previous queue.Status
	Advanced bool
	// Skipped lists stages passed between this poll and the previous one
	// without being observed.
	Skipped        []queue.Status
	Regressed      bool
	Stalled        bool
	UnchangedPolls int
	// FailedPolls counts consecutive polls that could not fetch the record.
	FailedPolls int
	Outcome     Outcome
	Record      *queue.Record
	ObservedAt  time.Time
	// SinceChange is how long Status has been unchanged.
	SinceChange time.Duration
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock injects the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger used for progress, stall and regression events.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logging.NewComponentLogger(logger, "tracker")
	}
}

// WithInitialStatus seeds the last known status, e.g. queued right after
// submission or the status cached in the local store.
func WithInitialStatus(status queue.Status) TrackerOption {
	return func(t *Tracker) {
		if status.Valid() {
			t.status = status
		}
	}
}

// Tracker folds successive polls of one queue record into a monotonic view.
// It is safe for concurrent use; independent trackers share nothing.
type Tracker struct {
	queueID int64
	policy  Policy
	now     func() time.Time
	logger  *slog.Logger

	mu         sync.Mutex
	status     queue.Status
	started    time.Time
	lastChange time.Time
	unchanged  int
	failed     int
	stalled    bool
	outcome    Outcome
	last       *Observation
}

// NewTracker returns a tracker for queueID governed by policy.
func NewTracker(queueID int64, policy Policy, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		queueID: queueID,
		policy:  policy,
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// QueueID returns the tracked record ID.
func (t *Tracker) QueueID() int64 { return t.queueID }

// Policy returns the tracker's policy.
func (t *Tracker) Policy() Policy { return t.policy }

// Status returns the latest accepted status, or "" before the first poll
// when no initial status was given.
func (t *Tracker) Status() queue.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Stalled reports whether progress stopped beyond the policy thresholds.
func (t *Tracker) Stalled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stalled
}

// Outcome returns the current verdict.
func (t *Tracker) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Last returns the most recent observation.
func (t *Tracker) Last() (Observation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Observation{QueueID: t.queueID, Status: t.status, Outcome: t.outcome}, false
	}
	return t.last.clone(), true
}

// Observe records one poll result. A nil record means the backend no longer
// lists the job. Once the outcome is terminal, further polls are ignored.
// rec.Status is always a known stage: queue.Status decoding rejects other
// values, so such listings arrive as protocol errors through ObserveError.
func (t *Tracker) Observe(rec *queue.Record) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outcome.Terminal() && t.last != nil {
		return t.last.clone()
	}

	now := t.now()
	if t.started.IsZero() {
		t.started = now
		t.lastChange = now
	}

	obs := Observation{
		QueueID:    t.queueID,
		Previous:   t.status,
		ObservedAt: now,
	}
	logger := t.logger.With(logging.Int64(logging.FieldQueueID, t.queueID))

	switch {
	case rec == nil:
		if t.status.IsTerminal() {
			t.outcome = OutcomeDone
		} else {
			t.outcome = OutcomeRemoved
			logging.WarnWithContext(logger, "queue record removed before completion", "job_removed",
				logging.String(logging.FieldStatus, string(t.status)),
				logging.String(logging.FieldImpact, "meditation will not be produced"),
			)
		}
	case t.status == "" || rec.Status.After(t.status):
		obs.Reported = rec.Status
		obs.Advanced = true
		if t.status != "" {
			obs.Skipped = queue.Between(t.status, rec.Status)
		}
		t.status = rec.Status
		t.lastChange = now
		t.unchanged = 0
		t.stalled = false
		logger.Info("pipeline status advanced",
			logging.String(logging.FieldStatus, string(rec.Status)),
			logging.String("previous", string(obs.Previous)),
			logging.Int("skipped", len(obs.Skipped)),
		)
		if rec.Status.IsTerminal() {
			t.outcome = OutcomeDone
		}
	case rec.Status == t.status:
		obs.Reported = rec.Status
		t.unchanged++
	default:
		obs.Reported = rec.Status
		obs.Regressed = true
		t.unchanged++
		logging.WarnWithContext(logger, "ignoring earlier pipeline status", "status_regressed",
			logging.String(logging.FieldStatus, string(t.status)),
			logging.String("reported", string(rec.Status)),
			logging.String(logging.FieldImpact, "displayed status kept at latest observed stage"),
		)
	}

	if rec != nil {
		cp := *rec
		obs.Record = &cp
	}
	t.failed = 0
	return t.settle(obs, now, logger)
}

// ObserveError records a poll that could not fetch the record. A failed poll
// counts as a poll without progress, so the stall and give-up thresholds keep
// running while the backend is unreachable. The returned observation carries
// the last accepted status and record.
func (t *Tracker) ObserveError(err error) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outcome.Terminal() && t.last != nil {
		return t.last.clone()
	}

	now := t.now()
	if t.started.IsZero() {
		t.started = now
		t.lastChange = now
	}
	t.unchanged++
	t.failed++

	obs := Observation{
		QueueID:    t.queueID,
		Previous:   t.status,
		Reported:   t.status,
		ObservedAt: now,
	}
	if t.last != nil && t.last.Record != nil {
		cp := *t.last.Record
		obs.Record = &cp
	}
	logger := t.logger.With(logging.Int64(logging.FieldQueueID, t.queueID))
	logger.Debug("queue poll failed",
		logging.Int("failed_polls", t.failed),
		logging.Error(err),
	)
	return t.settle(obs, now, logger)
}

// settle applies the give-up and stall rules and stores obs as the latest
// observation. Callers hold t.mu.
func (t *Tracker) settle(obs Observation, now time.Time, logger *slog.Logger) Observation {
	if !t.outcome.Terminal() {
		if t.policy.GiveUpAfter > 0 && now.Sub(t.started) >= t.policy.GiveUpAfter {
			t.outcome = OutcomeGaveUp
			logging.WarnWithContext(logger, "gave up waiting for generation", "tracking_gave_up",
				logging.String(logging.FieldStatus, string(t.status)),
				logging.Duration("waited", now.Sub(t.started)),
				logging.Int("failed_polls", t.failed),
				logging.String(logging.FieldImpact, "job may still finish later"),
			)
		}
		stalled := t.isStalled(now)
		if stalled && !t.stalled {
			logging.WarnWithContext(logger, "pipeline progress stalled", "pipeline_stalled",
				logging.String(logging.FieldStatus, string(t.status)),
				logging.Int("unchanged_polls", t.unchanged),
				logging.Int("failed_polls", t.failed),
				logging.String(logging.FieldImpact, "generation is taking longer than expected"),
			)
		}
		t.stalled = stalled
	} else {
		t.stalled = false
	}

	obs.Status = t.status
	obs.Stalled = t.stalled
	obs.UnchangedPolls = t.unchanged
	obs.FailedPolls = t.failed
	obs.Outcome = t.outcome
	obs.SinceChange = now.Sub(t.lastChange)
	t.last = &obs
	return obs.clone()
}

func (t *Tracker) isStalled(now time.Time) bool {
	if t.policy.StallAfterPolls > 0 && t.unchanged >= t.policy.StallAfterPolls {
		return true
	}
	return t.policy.StallAfter > 0 && now.Sub(t.lastChange) >= t.policy.StallAfter
}

func (o Observation) clone() Observation {
	cp := o
	cp.Skipped = slices.Clone(o.Skipped)
	if o.Record != nil {
		rec := *o.Record
		cp.Record = &rec
	}
	return cp
}

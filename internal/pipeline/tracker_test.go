package pipeline_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mantrify/internal/api"
	"mantrify/internal/pipeline"
	"mantrify/internal/queue"
)

type fakeClock struct {
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func rec(id int64, status queue.Status) *queue.Record {
	return &queue.Record{ID: id, Status: status}
}

func TestTrackerAcceptsSkippedStages(t *testing.T) {
	clock := newClock()
	tr := pipeline.NewTracker(1, pipeline.Policy{}, pipeline.WithClock(clock.Now))

	first := tr.Observe(rec(1, queue.StatusQueued))
	require.True(t, first.Advanced)
	require.Empty(t, first.Skipped)
	require.Equal(t, pipeline.OutcomePending, first.Outcome)

	mid := tr.Observe(rec(1, queue.StatusElevenLabs))
	require.True(t, mid.Advanced)
	require.Equal(t, queue.StatusQueued, mid.Previous)
	require.Equal(t, []queue.Status{queue.StatusStarted}, mid.Skipped)

	last := tr.Observe(rec(1, queue.StatusDone))
	require.Equal(t, []queue.Status{queue.StatusConcatenator}, last.Skipped)
	require.Equal(t, queue.StatusDone, last.Status)
	require.Equal(t, pipeline.OutcomeDone, last.Outcome)
	require.True(t, last.Outcome.Completed())
	require.Equal(t, pipeline.OutcomeDone, tr.Outcome())
}

func TestTrackerInitialStatusComputesSkips(t *testing.T) {
	tr := pipeline.NewTracker(1, pipeline.Policy{}, pipeline.WithInitialStatus(queue.StatusQueued))
	require.Equal(t, queue.StatusQueued, tr.Status())

	obs := tr.Observe(rec(1, queue.StatusDone))
	require.Equal(t, []queue.Status{queue.StatusStarted, queue.StatusElevenLabs, queue.StatusConcatenator}, obs.Skipped)
}

func TestTrackerIgnoresRegression(t *testing.T) {
	tr := pipeline.NewTracker(1, pipeline.Policy{})
	tr.Observe(rec(1, queue.StatusConcatenator))

	obs := tr.Observe(rec(1, queue.StatusStarted))
	require.True(t, obs.Regressed)
	require.False(t, obs.Advanced)
	require.Equal(t, queue.StatusConcatenator, obs.Status)
	require.Equal(t, queue.StatusStarted, obs.Reported)
	require.Equal(t, queue.StatusConcatenator, tr.Status())
}

func TestTrackerNeverRegressesUnderRandomPolls(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := queue.AllStatuses()

	for run := 0; run < 50; run++ {
		tr := pipeline.NewTracker(1, pipeline.Policy{StallAfterPolls: 2})
		prev := -1
		for poll := 0; poll < 30; poll++ {
			obs := tr.Observe(rec(1, statuses[rng.Intn(len(statuses))]))
			require.GreaterOrEqual(t, obs.Status.Rank(), prev)
			prev = obs.Status.Rank()
			if obs.Outcome.Terminal() {
				require.Equal(t, queue.StatusDone, obs.Status)
			}
		}
	}
}

func TestTrackerStallsAfterUnchangedPolls(t *testing.T) {
	tr := pipeline.NewTracker(1, pipeline.Policy{StallAfterPolls: 3})

	tr.Observe(rec(1, queue.StatusStarted))
	for i := 0; i < 2; i++ {
		require.False(t, tr.Observe(rec(1, queue.StatusStarted)).Stalled)
	}
	obs := tr.Observe(rec(1, queue.StatusStarted))
	require.True(t, obs.Stalled)
	require.Equal(t, 3, obs.UnchangedPolls)
	require.True(t, tr.Stalled())
	require.Equal(t, pipeline.OutcomePending, obs.Outcome, "a stall is not a failure")

	obs = tr.Observe(rec(1, queue.StatusElevenLabs))
	require.False(t, obs.Stalled)
	require.Zero(t, obs.UnchangedPolls)
}

func TestTrackerStallsAfterDuration(t *testing.T) {
	clock := newClock()
	tr := pipeline.NewTracker(1, pipeline.Policy{StallAfter: time.Minute}, pipeline.WithClock(clock.Now))

	tr.Observe(rec(1, queue.StatusQueued))
	clock.Advance(59 * time.Second)
	require.False(t, tr.Observe(rec(1, queue.StatusQueued)).Stalled)

	clock.Advance(time.Second)
	obs := tr.Observe(rec(1, queue.StatusQueued))
	require.True(t, obs.Stalled)
	require.Equal(t, time.Minute, obs.SinceChange)
}

func TestTrackerRemovedBeforeDone(t *testing.T) {
	tr := pipeline.NewTracker(1, pipeline.Policy{})
	tr.Observe(rec(1, queue.StatusElevenLabs))

	obs := tr.Observe(nil)
	require.Equal(t, pipeline.OutcomeRemoved, obs.Outcome)
	require.False(t, obs.Outcome.Completed())
	require.Equal(t, queue.StatusElevenLabs, obs.Status)
	require.Nil(t, obs.Record)
}

func TestTrackerIgnoresPollsAfterDone(t *testing.T) {
	tr := pipeline.NewTracker(1, pipeline.Policy{StallAfterPolls: 1})
	done := tr.Observe(rec(1, queue.StatusDone))

	require.Equal(t, done, tr.Observe(nil))
	require.Equal(t, done, tr.Observe(rec(1, queue.StatusQueued)))
	require.Equal(t, pipeline.OutcomeDone, tr.Outcome())
	require.False(t, tr.Stalled())
}

func TestTrackerGivesUp(t *testing.T) {
	clock := newClock()
	tr := pipeline.NewTracker(1, pipeline.Policy{GiveUpAfter: 10 * time.Minute}, pipeline.WithClock(clock.Now))

	tr.Observe(rec(1, queue.StatusQueued))
	clock.Advance(5 * time.Minute)
	require.Equal(t, pipeline.OutcomePending, tr.Observe(rec(1, queue.StatusStarted)).Outcome)

	clock.Advance(5 * time.Minute)
	obs := tr.Observe(rec(1, queue.StatusStarted))
	require.Equal(t, pipeline.OutcomeGaveUp, obs.Outcome)
	require.True(t, obs.Outcome.Terminal())
}

func TestTrackerFailedPollsCountTowardStallAndGiveUp(t *testing.T) {
	clock := newClock()
	policy := pipeline.Policy{StallAfterPolls: 3, GiveUpAfter: 10 * time.Minute}
	tr := pipeline.NewTracker(1, policy, pipeline.WithClock(clock.Now))
	unavailable := &api.Error{Kind: api.ErrTransient, StatusCode: 503}

	tr.Observe(rec(1, queue.StatusStarted))
	for i := 0; i < 2; i++ {
		clock.Advance(time.Second)
		require.False(t, tr.ObserveError(unavailable).Stalled)
	}
	clock.Advance(time.Second)
	obs := tr.ObserveError(unavailable)
	require.True(t, obs.Stalled)
	require.Equal(t, 3, obs.FailedPolls)
	require.Equal(t, queue.StatusStarted, obs.Status)
	require.NotNil(t, obs.Record)
	require.Equal(t, pipeline.OutcomePending, obs.Outcome)

	clock.Advance(10 * time.Minute)
	obs = tr.ObserveError(unavailable)
	require.Equal(t, pipeline.OutcomeGaveUp, obs.Outcome)
	require.Equal(t, pipeline.OutcomeGaveUp, tr.Observe(rec(1, queue.StatusDone)).Outcome)
}

func TestTrackerSuccessfulPollResetsFailures(t *testing.T) {
	clock := newClock()
	tr := pipeline.NewTracker(1, pipeline.Policy{}, pipeline.WithClock(clock.Now))

	first := tr.ObserveError(&api.Error{Kind: api.ErrTransient})
	require.Equal(t, 1, first.FailedPolls)
	require.Empty(t, first.Status)

	obs := tr.Observe(rec(1, queue.StatusQueued))
	require.Zero(t, obs.FailedPolls)
	require.True(t, obs.Advanced)
}

func TestTrackerLastBeforeAnyPoll(t *testing.T) {
	tr := pipeline.NewTracker(9, pipeline.Policy{}, pipeline.WithInitialStatus(queue.StatusQueued))
	obs, ok := tr.Last()
	require.False(t, ok)
	require.Equal(t, int64(9), obs.QueueID)
	require.Equal(t, queue.StatusQueued, obs.Status)
}

func TestOutcomeStrings(t *testing.T) {
	require.Equal(t, "pending", pipeline.OutcomePending.String())
	require.Equal(t, "done", pipeline.OutcomeDone.String())
	require.Equal(t, "removed", pipeline.OutcomeRemoved.String())
	require.Equal(t, "gave up", pipeline.OutcomeGaveUp.String())
}

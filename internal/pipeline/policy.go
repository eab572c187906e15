package pipeline

import (
	"time"

	"mantrify/internal/config"
)

// Policy holds the polling cadence and progress thresholds for a tracker.
type Policy struct {
	PollInterval time.Duration
	// StallAfterPolls flags a stall after this many consecutive polls without
	// progress. Zero disables the poll-count rule.
	StallAfterPolls int
	// StallAfter flags a stall when no progress was seen for this long. Zero
	// disables the duration rule.
	StallAfter time.Duration
	// GiveUpAfter ends tracking with OutcomeGaveUp once the job has been
	// tracked this long without finishing. Zero waits indefinitely.
	GiveUpAfter time.Duration
}

// DefaultPolicy returns the policy implied by the default configuration.
func DefaultPolicy() Policy {
	cfg := config.Default()
	return PolicyFromConfig(&cfg)
}

// PolicyFromConfig reads the tracking section of cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		PollInterval:    cfg.PollInterval(),
		StallAfterPolls: cfg.Tracking.StallAfterPolls,
		StallAfter:      cfg.StallAfter(),
		GiveUpAfter:     cfg.GiveUpAfter(),
	}
}

func (p Policy) pollInterval() time.Duration {
	if p.PollInterval <= 0 {
		return 5 * time.Second
	}
	return p.PollInterval
}

package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents a pipeline stage reported by the backend.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusStarted      Status = "started"
	StatusElevenLabs   Status = "elevenlabs"
	StatusConcatenator Status = "concatenator"
	StatusDone         Status = "done"
)

// allStatuses is ordered by pipeline position.
var allStatuses = []Status{
	StatusQueued,
	StatusStarted,
	StatusElevenLabs,
	StatusConcatenator,
	StatusDone,
}

var statusRank = func() map[Status]int {
	ranks := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		ranks[status] = i
	}
	return ranks
}()

// AllStatuses returns the statuses in pipeline order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRank[normalized]
	return normalized, ok
}

// Rank returns the zero-based pipeline position, or -1 for unknown values.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// Valid reports whether s is one of the five pipeline statuses.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// After reports whether s is strictly later in the pipeline than other.
func (s Status) After(other Status) bool {
	return s.Rank() > other.Rank()
}

// Between returns the statuses strictly between from and to in pipeline order.
// It returns nil when to is not after from.
func Between(from, to Status) []Status {
	lo, hi := from.Rank(), to.Rank()
	if lo < 0 || hi < 0 || hi-lo < 2 {
		return nil
	}
	out := make([]Status, 0, hi-lo-1)
	for _, status := range allStatuses[lo+1 : hi] {
		out = append(out, status)
	}
	return out
}

// Description returns the user-facing meaning of a pipeline stage.
func (s Status) Description() string {
	switch s {
	case StatusQueued:
		return "Waiting for a worker"
	case StatusStarted:
		return "Preparing segments"
	case StatusElevenLabs:
		return "Synthesizing speech"
	case StatusConcatenator:
		return "Assembling audio"
	case StatusDone:
		return "Ready to play"
	default:
		return "Unknown stage"
	}
}

// UnmarshalText rejects values outside the pipeline enum.
func (s *Status) UnmarshalText(text []byte) error {
	status, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown queue status %q", string(text))
	}
	*s = status
	return nil
}

// Record is a point-in-time snapshot of a backend queue record. It is
// read-only from the client's perspective.
type Record struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Status      Status    `json:"status"`
	JobFilename string    `json:"jobFilename"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Submission is the local read-model row for a job this client submitted.
type Submission struct {
	QueueID        int64
	Title          string
	FilePath       string
	Status         Status
	MeditationID   int64
	Removed        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastObservedAt *time.Time
}

// IsSettled reports whether the job needs no further polling.
func (s Submission) IsSettled() bool {
	return s.Removed || s.Status.IsTerminal()
}

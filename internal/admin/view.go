package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"mantrify/internal/api"
	"mantrify/internal/logging"
	"mantrify/internal/queue"
)

// DeletionNotice must be shown to operators before a queue record is deleted.
const DeletionNotice = "Deleting a queue record removes the tracking entry only. " +
	"It does not cancel generation that is already in progress."

// ErrInvalidID is returned for identifiers that cannot name a queue record.
var ErrInvalidID = errors.New("invalid queue record id")

// Backend is the subset of the API client the view needs.
type Backend interface {
	QueueRecords(ctx context.Context) ([]queue.Record, error)
	DeleteQueueRecord(ctx context.Context, queueID int64) (api.DeleteResult, error)
}

// StatusCount is the number of records at one pipeline stage.
type StatusCount struct {
	Status queue.Status
	Count  int
}

// Snapshot is a point-in-time listing of the queue.
type Snapshot struct {
	Records []queue.Record
	// Summary has one entry per stage in pipeline order, including zeros.
	Summary []StatusCount
}

// Total returns the number of records.
func (s Snapshot) Total() int {
	return len(s.Records)
}

// Pending returns the number of records not yet done.
func (s Snapshot) Pending() int {
	n := 0
	for _, rec := range s.Records {
		if !rec.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// Outcome classifies a delete.
type Outcome int

const (
	Deleted Outcome = iota
	AlreadyGone
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case AlreadyGone:
		return "already gone"
	default:
		return "unknown"
	}
}

// DeleteResult reports what a delete did.
type DeleteResult struct {
	QueueID int64
	Outcome Outcome
	Message string
}

// View lists and deletes queue records for operators.
type View struct {
	backend Backend
	logger  *slog.Logger
}

// NewView builds a view over backend.
func NewView(backend Backend, logger *slog.Logger) *View {
	return &View{backend: backend, logger: logging.NewComponentLogger(logger, "admin")}
}

// List fetches every queue record sorted by ID.
func (v *View) List(ctx context.Context) (Snapshot, error) {
	records, err := v.backend.QueueRecords(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list queue: %w", err)
	}
	records = slices.Clone(records)
	slices.SortFunc(records, func(a, b queue.Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return Snapshot{Records: records, Summary: Summarize(records)}, nil
}

// Summarize counts records per stage in pipeline order.
func Summarize(records []queue.Record) []StatusCount {
	counts := make(map[queue.Status]int, len(records))
	for _, rec := range records {
		counts[rec.Status]++
	}
	statuses := queue.AllStatuses()
	out := make([]StatusCount, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// Delete removes a queue record. A record the backend no longer has yields
// AlreadyGone without error; deleting twice is safe. Non-positive IDs are
// rejected locally with ErrInvalidID.
func (v *View) Delete(ctx context.Context, queueID int64) (DeleteResult, error) {
	if queueID <= 0 {
		return DeleteResult{}, fmt.Errorf("%w: %d", ErrInvalidID, queueID)
	}
	res, err := v.backend.DeleteQueueRecord(ctx, queueID)
	switch {
	case errors.Is(err, api.ErrNotFound):
		v.logger.Info("queue record already gone", logging.Int64(logging.FieldQueueID, queueID))
		return DeleteResult{QueueID: queueID, Outcome: AlreadyGone}, nil
	case err != nil:
		return DeleteResult{}, fmt.Errorf("delete queue record %d: %w", queueID, err)
	}
	v.logger.Info("queue record deleted", logging.Int64(logging.FieldQueueID, queueID))
	return DeleteResult{QueueID: queueID, Outcome: Deleted, Message: res.Message}, nil
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Track records a freshly accepted submission. Tracking the same queue ID
// twice keeps the original row and refreshes its title and file path.
func (s *Store) Track(ctx context.Context, queueID int64, title, filePath string) (*Submission, error) {
	if queueID <= 0 {
		return nil, fmt.Errorf("track submission: invalid queue id %d", queueID)
	}
	timestamp := timestampNow()
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO submissions (
            queue_id, title, file_path, status, status_rank, removed, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT(queue_id) DO UPDATE SET
            title = excluded.title,
            file_path = excluded.file_path,
            updated_at = excluded.updated_at`,
		queueID,
		strings.TrimSpace(title),
		nullableString(filePath),
		StatusQueued,
		StatusQueued.Rank(),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("track submission: %w", err)
	}
	return s.Get(ctx, queueID)
}

// Get fetches a tracked submission. It returns nil when the queue ID is unknown.
func (s *Store) Get(ctx context.Context, queueID int64) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE queue_id = ?`, queueID)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// List returns tracked submissions, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		for _, status := range statuses {
			if !status.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
			}
			args = append(args, status)
		}
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	query += ` ORDER BY created_at DESC, queue_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Pending returns submissions that still need polling.
func (s *Store) Pending(ctx context.Context) ([]*Submission, error) {
	subs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := subs[:0]
	for _, sub := range subs {
		if !sub.IsSettled() {
			pending = append(pending, sub)
		}
	}
	return pending, nil
}

// ApplyObservation folds a polled status into the read-model. The stored
// status only moves forward; an earlier status refreshes last_observed_at
// without rewinding. Unknown queue IDs are ignored.
func (s *Store) ApplyObservation(ctx context.Context, queueID int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	now := timestampNow()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE submissions
         SET status = CASE WHEN status_rank < ? THEN ? ELSE status END,
             status_rank = MAX(status_rank, ?),
             last_observed_at = ?, updated_at = ?
         WHERE queue_id = ?`,
		status.Rank(), status,
		status.Rank(),
		now, now,
		queueID,
	)
	if err != nil {
		return fmt.Errorf("apply observation: %w", err)
	}
	return nil
}

// MarkRemoved records that the backend no longer has a queue record for the job.
func (s *Store) MarkRemoved(ctx context.Context, queueID int64) error {
	now := timestampNow()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE submissions SET removed = 1, last_observed_at = ?, updated_at = ? WHERE queue_id = ? AND status_rank < ?`,
		now, now, queueID, StatusDone.Rank(),
	)
	if err != nil {
		return fmt.Errorf("mark removed: %w", err)
	}
	return nil
}

// LinkMeditation associates a finished job with the meditation it produced.
func (s *Store) LinkMeditation(ctx context.Context, queueID, meditationID int64) error {
	now := timestampNow()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE submissions SET meditation_id = ?, updated_at = ? WHERE queue_id = ?`,
		meditationID, now, queueID,
	)
	if err != nil {
		return fmt.Errorf("link meditation: %w", err)
	}
	return nil
}

// Remove forgets a tracked submission.
func (s *Store) Remove(ctx context.Context, queueID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM submissions WHERE queue_id = ?`, queueID)
	if err != nil {
		return false, fmt.Errorf("remove submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Clear removes every tracked submission.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("clear submissions: %w", err)
	}
	return res.RowsAffected()
}

// ClearSettled removes submissions that finished or disappeared upstream.
func (s *Store) ClearSettled(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM submissions WHERE removed = 1 OR status = ?`, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("clear settled submissions: %w", err)
	}
	return res.RowsAffected()
}

package queue

import (
	"database/sql"
	"errors"
	"time"
)

const submissionColumns = "queue_id, title, file_path, status, meditation_id, removed, created_at, updated_at, last_observed_at"

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*Submission, error) {
	var (
		queueID         int64
		title           string
		filePath        sql.NullString
		statusStr       string
		meditationID    sql.NullInt64
		removed         int64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		lastObservedRaw sql.NullString
	)

	if err := scanner.Scan(
		&queueID,
		&title,
		&filePath,
		&statusStr,
		&meditationID,
		&removed,
		&createdRaw,
		&updatedRaw,
		&lastObservedRaw,
	); err != nil {
		return nil, err
	}

	sub := &Submission{
		QueueID:      queueID,
		Title:        title,
		FilePath:     filePath.String,
		Status:       Status(statusStr),
		MeditationID: meditationID.Int64,
		Removed:      removed != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sub.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sub.UpdatedAt = updated
	}
	if lastObservedRaw.Valid {
		if observed, err := parseTimeString(lastObservedRaw.String); err == nil {
			sub.LastObservedAt = &observed
		}
	}
	return sub, nil
}

// timestampLayout keeps a fixed-width fraction so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestampNow() string {
	return time.Now().UTC().Format(timestampLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth captures diagnostic information about the submission database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalSubmissions int
	Error            string
}

var expectedColumns = []string{
	"queue_id",
	"title",
	"file_path",
	"status",
	"status_rank",
	"meditation_id",
	"removed",
	"created_at",
	"updated_at",
	"last_observed_at",
}

// Stats returns a count of tracked submissions grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions WHERE removed = 0 GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("submission stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the submission database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("submission database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat submission database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("submission database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping submission database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'submissions'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		columns, err := s.tableColumns(connCtx)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		present := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			present[col] = struct{}{}
		}
		for _, col := range expectedColumns {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM submissions")
		if err := row.Scan(&health.TotalSubmissions); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count submissions: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(submissions)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// Healthy reports whether the database exists, opens and has the expected schema.
func (h DatabaseHealth) Healthy() bool {
	return h.DatabaseExists && h.DatabaseReadable && h.TableExists &&
		len(h.MissingColumns) == 0 && h.IntegrityCheck && h.Error == ""
}

// Summary renders the health as one line for diagnostics.
func (h DatabaseHealth) Summary() string {
	switch {
	case h.Error != "":
		return fmt.Sprintf("%s (error: %s)", h.DBPath, h.Error)
	case !h.DatabaseExists:
		return fmt.Sprintf("%s (not created yet)", h.DBPath)
	case !h.TableExists:
		return fmt.Sprintf("%s (submissions table missing)", h.DBPath)
	case len(h.MissingColumns) > 0:
		return fmt.Sprintf("%s (missing columns: %s)", h.DBPath, strings.Join(h.MissingColumns, ", "))
	case !h.IntegrityCheck:
		return fmt.Sprintf("%s (integrity check failed)", h.DBPath)
	default:
		return fmt.Sprintf("%s (%d submissions)", h.DBPath, h.TotalSubmissions)
	}
}

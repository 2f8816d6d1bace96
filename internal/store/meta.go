package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const lastExportRunKey = "last_export_run"

// LastExportRun returns the completion time of the last successful export
// run, if one has been recorded.
func (s *Store) LastExportRun(ctx context.Context) (time.Time, bool, error) {
	var value string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT value FROM pipeline_meta WHERE key = ?`, lastExportRunKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read last export run: %w", err)
	}
	parsed, err := parseTime(value)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed, true, nil
}

// RecordExportRun stamps a successful export run. Only recorded when the run
// finished without transfer errors, so the next recent-mode export retries
// anything that failed.
func (s *Store) RecordExportRun(ctx context.Context, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO pipeline_meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastExportRunKey, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record export run: %w", err)
	}
	return nil
}

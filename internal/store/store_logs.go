package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// WriteLog appends an action with JSON-encoded data to the action log.
func (s *Store) WriteLog(ctx context.Context, action string, data any) error {
	payload := "{}"
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode log data for %s: %w", action, err)
		}
		payload = string(encoded)
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO action_log (action, data, logged_at) VALUES (?, ?, ?)",
		action, payload, formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("write log %s: %w", action, err)
	}
	return nil
}

// RecentLogs returns up to limit entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT id, action, data, logged_at FROM action_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry LogEntry
			at    sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Data, &at); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry.At = parseTime(at)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

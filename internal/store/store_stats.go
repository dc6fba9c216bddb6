package store

import (
	"context"
	"fmt"
	"time"
)

// Stats aggregates counts for the admin surface. "Today" starts at midnight UTC of now.
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	ctx = ensureContext(ctx)
	today := formatTime(StartOfDay(now))
	stats := Stats{Posts: make(map[Status]int, len(allStatuses))}

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.Users, "SELECT COUNT(1) FROM users", nil},
		{&stats.UsersToday, "SELECT COUNT(1) FROM users WHERE registered_at >= ?", []any{today}},
		{&stats.Bans, "SELECT COUNT(1) FROM bans", nil},
		{&stats.Keywords, "SELECT COUNT(1) FROM blacklist_keywords", nil},
		{&stats.Subscriptions, "SELECT COUNT(1) FROM required_subscriptions", nil},
		{&stats.PostsToday, "SELECT COUNT(1) FROM posts WHERE submitted_at >= ?", []any{today}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM posts GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()
	for _, status := range allStatuses {
		stats.Posts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Posts[Status(status)] = count
	}
	return stats, rows.Err()
}

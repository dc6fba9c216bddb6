package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateUser registers u if absent and reports whether a row was inserted.
// An existing user keeps its registration date; only the username is refreshed.
func (s *Store) CreateUser(ctx context.Context, u User) (bool, error) {
	registered := u.RegisteredAt
	if registered.IsZero() {
		registered = s.now()
	}
	created, err := s.execAffected(ctx,
		`INSERT INTO users (user_id, username, registered_at, subscription_verified)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		u.ID, u.Username, formatTime(registered), u.SubscriptionVerified,
	)
	if err != nil {
		return false, fmt.Errorf("create user %d: %w", u.ID, err)
	}
	if !created && u.Username != "" {
		if _, err := s.execWithRetry(ctx, "UPDATE users SET username = ? WHERE user_id = ?", u.Username, u.ID); err != nil {
			return false, fmt.Errorf("refresh username for %d: %w", u.ID, err)
		}
	}
	return created, nil
}

// GetUser returns the user or nil when unregistered.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var (
		u          User
		registered sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT user_id, username, registered_at, subscription_verified FROM users WHERE user_id = ?", id,
	).Scan(&u.ID, &u.Username, &registered, &u.SubscriptionVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	u.RegisteredAt = parseTime(registered)
	return &u, nil
}

// SetUserSubscribed records the latest subscription check result.
func (s *Store) SetUserSubscribed(ctx context.Context, id int64, verified bool) error {
	if _, err := s.execWithRetry(ctx, "UPDATE users SET subscription_verified = ? WHERE user_id = ?", verified, id); err != nil {
		return fmt.Errorf("set subscription flag for %d: %w", id, err)
	}
	return nil
}

// ResetSubscriptions clears every user's verified flag so the next
// submission re-checks against the current requirement list.
func (s *Store) ResetSubscriptions(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx, "UPDATE users SET subscription_verified = 0"); err != nil {
		return fmt.Errorf("reset subscription flags: %w", err)
	}
	return nil
}

// ListBroadcastTargets returns registered users that are not banned.
func (s *Store) ListBroadcastTargets(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT u.user_id FROM users u
		 LEFT JOIN bans b ON b.user_id = u.user_id
		 WHERE b.user_id IS NULL
		 ORDER BY u.user_id`)
	if err != nil {
		return nil, fmt.Errorf("list broadcast targets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

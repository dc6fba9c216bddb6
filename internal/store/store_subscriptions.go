package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrDuplicateSubscription is returned when the subscription is already required.
var ErrDuplicateSubscription = errors.New("subscription already required")

// AddSubscription stores a required subscription and returns its id.
func (s *Store) AddSubscription(ctx context.Context, sub Subscription) (int64, error) {
	switch sub.Type {
	case SubscriptionChannel, SubscriptionBot:
	default:
		return 0, fmt.Errorf("add subscription: unsupported type %q", sub.Type)
	}
	addedAt := sub.AddedAt
	if addedAt.IsZero() {
		addedAt = s.now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO required_subscriptions (sub_type, target_id, username, name, url, added_by, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.Type, sub.TargetID, sub.Username, sub.Name, sub.URL, sub.AddedBy, formatTime(addedAt),
	)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("add subscription %s: %w", sub.Username, ErrDuplicateSubscription)
	}
	if err != nil {
		return 0, fmt.Errorf("add subscription: %w", err)
	}
	return res.LastInsertId()
}

// RemoveSubscription deletes a subscription by id and reports whether it existed.
func (s *Store) RemoveSubscription(ctx context.Context, id int64) (bool, error) {
	removed, err := s.execAffected(ctx, "DELETE FROM required_subscriptions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("remove subscription %d: %w", id, err)
	}
	return removed, nil
}

// ListSubscriptions returns required subscriptions in insertion order.
func (s *Store) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT id, sub_type, target_id, username, name, url, added_by, added_at FROM required_subscriptions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var (
			sub     Subscription
			subType string
			addedAt sql.NullString
		)
		if err := rows.Scan(&sub.ID, &subType, &sub.TargetID, &sub.Username, &sub.Name, &sub.URL, &sub.AddedBy, &addedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Type = SubscriptionType(subType)
		sub.AddedAt = parseTime(addedAt)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

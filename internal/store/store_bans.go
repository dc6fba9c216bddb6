package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateBan bans a user, replacing any previous ban record.
func (s *Store) CreateBan(ctx context.Context, ban Ban) error {
	bannedAt := ban.BannedAt
	if bannedAt.IsZero() {
		bannedAt = s.now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO bans (user_id, reason, admin_id, admin_username, banned_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   reason = excluded.reason, admin_id = excluded.admin_id,
		   admin_username = excluded.admin_username, banned_at = excluded.banned_at`,
		ban.UserID, ban.Reason, ban.Admin.ID, ban.Admin.Username, formatTime(bannedAt),
	)
	if err != nil {
		return fmt.Errorf("ban user %d: %w", ban.UserID, err)
	}
	return nil
}

// DeleteBan lifts a ban and reports whether one existed.
func (s *Store) DeleteBan(ctx context.Context, userID int64) (bool, error) {
	removed, err := s.execAffected(ctx, "DELETE FROM bans WHERE user_id = ?", userID)
	if err != nil {
		return false, fmt.Errorf("unban user %d: %w", userID, err)
	}
	return removed, nil
}

const banColumns = "user_id, reason, admin_id, admin_username, banned_at"

func scanBan(scanner rowScanner) (*Ban, error) {
	var (
		ban      Ban
		bannedAt sql.NullString
	)
	if err := scanner.Scan(&ban.UserID, &ban.Reason, &ban.Admin.ID, &ban.Admin.Username, &bannedAt); err != nil {
		return nil, err
	}
	ban.BannedAt = parseTime(bannedAt)
	return &ban, nil
}

// GetBan returns the active ban for userID or nil.
func (s *Store) GetBan(ctx context.Context, userID int64) (*Ban, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+banColumns+" FROM bans WHERE user_id = ?", userID)
	ban, err := scanBan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ban %d: %w", userID, err)
	}
	return ban, nil
}

// ListBans returns bans newest first.
func (s *Store) ListBans(ctx context.Context) ([]Ban, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT "+banColumns+" FROM bans ORDER BY banned_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var bans []Ban
	for rows.Next() {
		ban, err := scanBan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		bans = append(bans, *ban)
	}
	return bans, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKeyword is returned when a keyword is already blacklisted.
var ErrDuplicateKeyword = errors.New("keyword already blacklisted")

// AddKeyword stores a blacklist keyword. Callers fold the keyword first.
func (s *Store) AddKeyword(ctx context.Context, kw Keyword) error {
	if strings.TrimSpace(kw.Keyword) == "" {
		return errors.New("add keyword: empty keyword")
	}
	addedAt := kw.AddedAt
	if addedAt.IsZero() {
		addedAt = s.now()
	}
	_, err := s.execWithRetry(ctx,
		"INSERT INTO blacklist_keywords (keyword, added_by, added_at) VALUES (?, ?, ?)",
		kw.Keyword, kw.AddedBy, formatTime(addedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("add keyword %q: %w", kw.Keyword, ErrDuplicateKeyword)
	}
	if err != nil {
		return fmt.Errorf("add keyword %q: %w", kw.Keyword, err)
	}
	return nil
}

// RemoveKeyword deletes a keyword and reports whether it existed.
func (s *Store) RemoveKeyword(ctx context.Context, keyword string) (bool, error) {
	removed, err := s.execAffected(ctx, "DELETE FROM blacklist_keywords WHERE keyword = ?", keyword)
	if err != nil {
		return false, fmt.Errorf("remove keyword %q: %w", keyword, err)
	}
	return removed, nil
}

// ListKeywords returns keywords in the order they were added.
func (s *Store) ListKeywords(ctx context.Context) ([]Keyword, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT keyword, added_by, added_at FROM blacklist_keywords ORDER BY added_at, keyword")
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []Keyword
	for rows.Next() {
		var (
			kw      Keyword
			addedAt sql.NullString
		)
		if err := rows.Scan(&kw.Keyword, &kw.AddedBy, &addedAt); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		kw.AddedAt = parseTime(addedAt)
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

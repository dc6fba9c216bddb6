package admin

import (
	"context"
	"fmt"

	"moderbot/internal/logging"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

// suggestDistance bounds how far a "did you mean" suggestion may be.
const suggestDistance = 3

// KeywordNotFoundError reports a removal of an absent keyword, with the
// closest existing keyword when one is near.
type KeywordNotFoundError struct {
	Keyword    string
	Suggestion string
}

func (e *KeywordNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("keyword %q not found, did you mean %q?", e.Keyword, e.Suggestion)
	}
	return fmt.Sprintf("keyword %q not found", e.Keyword)
}

func (e *KeywordNotFoundError) Unwrap() error {
	return ErrKeywordNotFound
}

// AddKeyword folds and stores a blacklist keyword, returning the stored form.
func (s *Service) AddKeyword(ctx context.Context, by store.Actor, keyword string) (string, error) {
	folded := textutil.Fold(keyword)
	if textutil.RuneLen(folded) < s.minKeywordLen {
		return "", fmt.Errorf("%w (min %d)", ErrKeywordTooShort, s.minKeywordLen)
	}
	if err := s.store.AddKeyword(ctx, store.Keyword{Keyword: folded, AddedBy: by.ID, AddedAt: s.now()}); err != nil {
		return "", err
	}
	s.logger.Info("blacklist keyword added", logging.String("keyword", folded), logging.Int64("admin_id", by.ID))
	s.writeLog(ctx, "blacklist_add", map[string]any{"keyword": folded, "admin_id": by.ID})
	return folded, nil
}

// RemoveKeyword deletes a keyword. An absent keyword yields a
// *KeywordNotFoundError.
func (s *Service) RemoveKeyword(ctx context.Context, by store.Actor, keyword string) (string, error) {
	folded := textutil.Fold(keyword)
	removed, err := s.store.RemoveKeyword(ctx, folded)
	if err != nil {
		return "", err
	}
	if !removed {
		notFound := &KeywordNotFoundError{Keyword: folded}
		if existing, err := s.store.ListKeywords(ctx); err == nil {
			candidates := make([]string, 0, len(existing))
			for _, kw := range existing {
				candidates = append(candidates, kw.Keyword)
			}
			if best, ok := textutil.Closest(folded, candidates, suggestDistance); ok {
				notFound.Suggestion = best
			}
		}
		return "", notFound
	}
	s.logger.Info("blacklist keyword removed", logging.String("keyword", folded), logging.Int64("admin_id", by.ID))
	s.writeLog(ctx, "blacklist_remove", map[string]any{"keyword": folded, "admin_id": by.ID})
	return folded, nil
}

// Keywords lists the blacklist.
func (s *Service) Keywords(ctx context.Context) ([]store.Keyword, error) {
	return s.store.ListKeywords(ctx)
}

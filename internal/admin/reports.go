package admin

import (
	"context"
	"time"

	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

// PendingSummary is a short line about a post awaiting moderation.
type PendingSummary struct {
	ID          int64
	AuthorID    int64
	Preview     string
	HasPhoto    bool
	SubmittedAt time.Time
}

// Report bundles store counts with the server time they were taken at.
type Report struct {
	store.Stats
	ServerTime time.Time
}

// Logs returns the newest action log entries. limit <= 0 uses DefaultLogLimit.
func (s *Service) Logs(ctx context.Context, limit int) ([]store.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.store.RecentLogs(ctx, limit)
}

// Pending returns the newest pending posts with shortened text.
func (s *Service) Pending(ctx context.Context, limit int) ([]PendingSummary, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	posts, err := s.store.ListPosts(ctx, store.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PendingSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, PendingSummary{
			ID:          p.ID,
			AuthorID:    p.AuthorID,
			Preview:     textutil.Preview(p.Text, PreviewLength),
			HasPhoto:    p.PhotoID != "",
			SubmittedAt: p.SubmittedAt,
		})
	}
	return out, nil
}

// Posts lists posts newest first, optionally filtered by status.
func (s *Service) Posts(ctx context.Context, status store.Status, limit int) ([]*store.Post, error) {
	return s.store.ListPosts(ctx, status, limit)
}

// Post returns one post or nil.
func (s *Service) Post(ctx context.Context, id int64) (*store.Post, error) {
	return s.store.GetPost(ctx, id)
}

// Stats collects the counters shown by /stats and /admin.
func (s *Service) Stats(ctx context.Context) (Report, error) {
	now := s.now()
	stats, err := s.store.Stats(ctx, now)
	if err != nil {
		return Report{}, err
	}
	return Report{Stats: stats, ServerTime: now}, nil
}

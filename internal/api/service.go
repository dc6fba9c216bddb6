package api

import (
	"context"
	"fmt"
	"strings"

	"moderbot/internal/admin"
	"moderbot/internal/services"
	"moderbot/internal/store"
)

// operator is the actor recorded for API calls that do not name an admin.
const operator = "operator"

func actor(adminID int64) store.Actor {
	return store.Actor{ID: adminID, Username: operator}
}

// Service exposes admin operations returning API DTOs.
type Service struct {
	admin *admin.Service
}

// NewService wraps an admin service.
func NewService(a *admin.Service) *Service {
	if a == nil {
		return nil
	}
	return &Service{admin: a}
}

// Stats returns the /stats counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	r, err := s.admin.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return FromReport(r), nil
}

// Posts lists posts, newest first. An empty status lists every post.
func (s *Service) Posts(ctx context.Context, status string, limit int) ([]Post, error) {
	var filter store.Status
	if status = strings.TrimSpace(status); status != "" {
		parsed, ok := store.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("unknown status %q: %w", status, services.ErrValidation)
		}
		filter = parsed
	}
	posts, err := s.admin.Posts(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	return FromPosts(posts), nil
}

// Post fetches a single post. A missing post returns nil.
func (s *Service) Post(ctx context.Context, id int64) (*Post, error) {
	p, err := s.admin.Post(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	dto := FromPost(p)
	return &dto, nil
}

// Logs returns the newest action log entries.
func (s *Service) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	entries, err := s.admin.Logs(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromLogEntry(e))
	}
	return out, nil
}

// Bans lists active bans.
func (s *Service) Bans(ctx context.Context) ([]Ban, error) {
	bans, err := s.admin.Bans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Ban, 0, len(bans))
	for _, b := range bans {
		out = append(out, FromBan(b))
	}
	return out, nil
}

// Ban bans a registered user.
func (s *Service) Ban(ctx context.Context, req BanRequest) (Ban, error) {
	ban, err := s.admin.Ban(ctx, actor(req.AdminID), req.UserID, req.Reason)
	if err != nil {
		return Ban{}, err
	}
	return FromBan(ban), nil
}

// Unban lifts a ban.
func (s *Service) Unban(ctx context.Context, userID, adminID int64) error {
	return s.admin.Unban(ctx, actor(adminID), userID)
}

// Keywords lists the blacklist.
func (s *Service) Keywords(ctx context.Context) ([]Keyword, error) {
	kws, err := s.admin.Keywords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Keyword, 0, len(kws))
	for _, k := range kws {
		out = append(out, FromKeyword(k))
	}
	return out, nil
}

// AddKeyword adds a blacklist keyword and returns its stored form.
func (s *Service) AddKeyword(ctx context.Context, req KeywordRequest) (string, error) {
	return s.admin.AddKeyword(ctx, actor(req.AdminID), req.Keyword)
}

// RemoveKeyword removes a blacklist keyword.
func (s *Service) RemoveKeyword(ctx context.Context, keyword string, adminID int64) (string, error) {
	return s.admin.RemoveKeyword(ctx, actor(adminID), keyword)
}

// Subscriptions lists required subscriptions in display order.
func (s *Service) Subscriptions(context.Context) ([]Subscription, error) {
	subs, err := s.admin.Subscriptions()
	if err != nil {
		return nil, err
	}
	out := make([]Subscription, 0, len(subs))
	for i, sub := range subs {
		out = append(out, FromSubscription(i+1, sub))
	}
	return out, nil
}

// AddSubscription adds a requirement.
func (s *Service) AddSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error) {
	added, err := s.admin.AddSubscription(ctx, actor(req.AdminID), store.Subscription{
		Type:     store.SubscriptionType(req.Type),
		TargetID: req.TargetID,
		Username: req.Username,
		Name:     req.Name,
		URL:      req.URL,
	})
	if err != nil {
		return Subscription{}, err
	}
	subs, _ := s.admin.Subscriptions()
	index := len(subs)
	for i, sub := range subs {
		if sub.ID == added.ID {
			index = i + 1
		}
	}
	return FromSubscription(index, added), nil
}

// RemoveSubscription removes the requirement at 1-based position index.
func (s *Service) RemoveSubscription(ctx context.Context, index int, adminID int64) (Subscription, error) {
	removed, err := s.admin.RemoveSubscription(ctx, actor(adminID), index)
	if err != nil {
		return Subscription{}, err
	}
	return FromSubscription(index, removed), nil
}

// Broadcast sends a message to every registered user who is not banned.
func (s *Service) Broadcast(ctx context.Context, req BroadcastRequest) (BroadcastResponse, error) {
	res, err := s.admin.Broadcast(ctx, actor(req.AdminID), req.Text, req.PhotoID)
	return BroadcastResponse{JobID: res.JobID, Sent: res.Sent, Failed: res.Failed}, err
}

// Package gatekeeper decides whether a user may submit a post right now.
package gatekeeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/services"
	"moderbot/internal/store"
)

// Reason names why a submission was denied.
type Reason string

const (
	Banned               Reason = "banned"
	SubscriptionRequired Reason = "subscription_required"
	RateLimited          Reason = "rate_limited"
)

// Verdict is the outcome of CanSubmit. Only the fields matching Reason are set.
// Subscribed reports that the subscription requirements were checked and met.
type Verdict struct {
	Allowed    bool
	Subscribed bool
	Reason     Reason
	Ban     *store.Ban
	Missing []store.Subscription
	Used    int
	Limit   int
}

// Kind classifies a denial as a policy rejection.
func (v Verdict) Kind() services.Kind {
	if v.Allowed {
		return ""
	}
	return services.KindPolicy
}

// Store is the persistence the gatekeeper reads.
type Store interface {
	GetBan(ctx context.Context, userID int64) (*store.Ban, error)
	CountPostsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// SubscriptionGate reports whether a user meets the subscription requirements.
type SubscriptionGate interface {
	Satisfied(ctx context.Context, userID int64) (bool, []store.Subscription, error)
}

// Option customizes a Gatekeeper.
type Option func(*Gatekeeper)

// WithNow replaces the clock used for the daily window.
func WithNow(now func() time.Time) Option {
	return func(g *Gatekeeper) {
		if now != nil {
			g.now = now
		}
	}
}

// Gatekeeper checks ban, subscription, and rate limit, in that order.
type Gatekeeper struct {
	store   Store
	subs    SubscriptionGate
	isAdmin func(int64) bool
	limit   int
	now     func() time.Time
	logger  *slog.Logger
}

// New builds a Gatekeeper. A nil subs gate skips the subscription check.
func New(st Store, subs SubscriptionGate, cfg *config.Config, logger *slog.Logger, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		store:   st,
		subs:    subs,
		isAdmin: cfg.IsAdmin,
		limit:   cfg.Limits.DailyPosts,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logging.NewComponentLogger(logger, "gatekeeper"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DailyLimit is the per-user submission cap.
func (g *Gatekeeper) DailyLimit() int {
	return g.limit
}

// PostsToday counts the user's submissions since midnight UTC.
func (g *Gatekeeper) PostsToday(ctx context.Context, userID int64) (int, error) {
	return g.store.CountPostsByUserSince(ctx, userID, store.StartOfDay(g.now()))
}

// CanSubmit has no side effects.
func (g *Gatekeeper) CanSubmit(ctx context.Context, userID int64) (Verdict, error) {
	ban, err := g.store.GetBan(ctx, userID)
	if err != nil {
		return Verdict{}, fmt.Errorf("check ban: %w", err)
	}
	if ban != nil {
		return Verdict{Reason: Banned, Ban: ban}, nil
	}

	subscribed := false
	if g.subs != nil && !g.isAdmin(userID) {
		ok, missing, err := g.subs.Satisfied(ctx, userID)
		if err != nil {
			return Verdict{}, fmt.Errorf("check subscriptions: %w", err)
		}
		if !ok {
			return Verdict{Reason: SubscriptionRequired, Missing: missing}, nil
		}
		subscribed = true
	}

	if g.limit > 0 {
		used, err := g.PostsToday(ctx, userID)
		if err != nil {
			return Verdict{}, fmt.Errorf("check rate limit: %w", err)
		}
		if used >= g.limit {
			g.logger.Debug("daily limit reached", logging.UserID(userID), logging.Int("used", used))
			return Verdict{Reason: RateLimited, Subscribed: subscribed, Used: used, Limit: g.limit}, nil
		}
	}
	return Verdict{Allowed: true, Subscribed: subscribed, Limit: g.limit}, nil
}

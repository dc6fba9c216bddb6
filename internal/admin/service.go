package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/notifier"
	"moderbot/internal/services"
	"moderbot/internal/store"
)

const (
	// DefaultBanReason applies when /ban omits a reason.
	DefaultBanReason = "Rule violation"
	// DefaultLogLimit is how many log entries Logs returns by default.
	DefaultLogLimit = 20
	// DefaultPendingLimit is how many pending posts Pending returns by default.
	DefaultPendingLimit = 10
	// PreviewLength bounds pending post previews.
	PreviewLength = 50
)

var (
	ErrUserNotFound    = fmt.Errorf("user not registered: %w", services.ErrNotFound)
	ErrNotBanned       = fmt.Errorf("user is not banned: %w", services.ErrNotFound)
	ErrKeywordTooShort = fmt.Errorf("keyword too short: %w", services.ErrValidation)
	ErrEmptyBroadcast  = fmt.Errorf("broadcast has no content: %w", services.ErrValidation)
	ErrKeywordNotFound = fmt.Errorf("keyword not found: %w", services.ErrNotFound)
)

// Store is the persistence the admin surface composes.
type Store interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	CreateBan(ctx context.Context, ban store.Ban) error
	DeleteBan(ctx context.Context, userID int64) (bool, error)
	GetBan(ctx context.Context, userID int64) (*store.Ban, error)
	ListBans(ctx context.Context) ([]store.Ban, error)
	AddKeyword(ctx context.Context, kw store.Keyword) error
	RemoveKeyword(ctx context.Context, keyword string) (bool, error)
	ListKeywords(ctx context.Context) ([]store.Keyword, error)
	ListPosts(ctx context.Context, status store.Status, limit int) ([]*store.Post, error)
	GetPost(ctx context.Context, id int64) (*store.Post, error)
	RecentLogs(ctx context.Context, limit int) ([]store.LogEntry, error)
	Stats(ctx context.Context, now time.Time) (store.Stats, error)
	ListBroadcastTargets(ctx context.Context) ([]int64, error)
	WriteLog(ctx context.Context, action string, data any) error
}

// Subscriptions is the mutable required-subscription list.
type Subscriptions interface {
	List() []store.Subscription
	Add(ctx context.Context, sub store.Subscription) (store.Subscription, error)
	RemoveAt(ctx context.Context, index int) (store.Subscription, error)
}

// Notifier delivers messages to individual users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, view notifier.View) error
}

// Option customizes a Service.
type Option func(*Service)

// WithNow overrides the clock used for stats and ban timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBroadcastLimiter overrides broadcast pacing.
func WithBroadcastLimiter(limiter *rate.Limiter) Option {
	return func(s *Service) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// Service implements admin operations.
type Service struct {
	store         Store
	subs          Subscriptions
	notifier      Notifier
	admins        map[int64]struct{}
	minKeywordLen int
	limiter       *rate.Limiter
	now           func() time.Time
	logger        *slog.Logger
}

// New builds a Service. subs may be nil when subscriptions are not managed
// by this process.
func New(st Store, subs Subscriptions, n Notifier, cfg *config.Config, logger *slog.Logger, opts ...Option) *Service {
	admins := make(map[int64]struct{}, len(cfg.Access.Admins))
	for _, id := range cfg.Access.Admins {
		admins[id] = struct{}{}
	}
	perSecond := cfg.Limits.BroadcastPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	s := &Service{
		store:         st,
		subs:          subs,
		notifier:      n,
		admins:        admins,
		minKeywordLen: cfg.Limits.MinKeywordLength,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), 1),
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logging.NewComponentLogger(logger, "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAdmin reports whether userID may use admin operations.
func (s *Service) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

func (s *Service) writeLog(ctx context.Context, action string, data map[string]any) {
	if err := s.store.WriteLog(ctx, action, data); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "write action log failed", "action_log_failed",
			logging.String("action", action),
			logging.Error(err),
			logging.String(logging.FieldImpact, "admin action not recorded in history"),
		)
	}
}

func (s *Service) notify(ctx context.Context, userID int64, view notifier.View) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUser(ctx, userID, view); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "user notification failed", "notification_failed",
			logging.UserID(userID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user was not told about the admin action"),
		)
	}
}

// IsUserError reports whether err describes bad input worth echoing back to
// the admin rather than an internal failure.
func IsUserError(err error) bool {
	return errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, store.ErrDuplicateKeyword) || errors.Is(err, store.ErrDuplicateSubscription)
}

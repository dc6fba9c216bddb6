// Package submission validates user content and turns it into a pending post.
package submission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

// Rejection names why content was refused before it was stored.
type Rejection string

const (
	BlacklistRejected Rejection = "blacklist"
	InvalidContent    Rejection = "invalid_content"
)

// Content is what the user sent: text, or a photo with an optional caption.
type Content struct {
	Text    string
	PhotoID string
}

// Result is either a created Post or a Rejection with details.
type Result struct {
	Post      *store.Post
	Rejection Rejection
	Keyword   string
	Message   string
}

// Accepted reports whether a post was created.
func (r Result) Accepted() bool {
	return r.Post != nil
}

// Kind classifies rejections as policy failures.
func (r Result) Kind() services.Kind {
	if r.Rejection == "" {
		return ""
	}
	return services.KindPolicy
}

// Store is the persistence the pipeline needs.
type Store interface {
	ListKeywords(ctx context.Context) ([]store.Keyword, error)
	CreatePost(ctx context.Context, in store.NewPost) (*store.Post, error)
	WriteLog(ctx context.Context, action string, data any) error
}

// Reviewer renders a new post for moderators and admins.
type Reviewer interface {
	PublishForReview(ctx context.Context, post *store.Post) (store.ReviewRefs, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDispatch replaces how the review step is launched. Tests pass a
// synchronous dispatcher.
func WithDispatch(dispatch func(func())) Option {
	return func(p *Pipeline) {
		if dispatch != nil {
			p.dispatch = dispatch
		}
	}
}

// WithNow sets the submission timestamp source.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs blacklist, validation, persistence, then review dispatch.
type Pipeline struct {
	store    Store
	reviewer Reviewer
	policy   Policy
	logger   *slog.Logger
	dispatch func(func())
	now      func() time.Time
}

// New builds a Pipeline.
func New(st Store, reviewer Reviewer, policy Policy, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		reviewer: reviewer,
		policy:   policy,
		logger:   logging.NewComponentLogger(logger, "submission"),
		dispatch: func(f func()) { go f() },
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the content rules in effect.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Submit never persists rejected content. Review rendering runs
// asynchronously and its failures are only logged.
func (p *Pipeline) Submit(ctx context.Context, userID int64, content Content) (Result, error) {
	ctx = services.WithUserID(ctx, userID)
	logger := logging.WithContext(ctx, p.logger)

	keywords, err := p.store.ListKeywords(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load blacklist: %w", err)
	}
	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		needles = append(needles, kw.Keyword)
	}
	if keyword, hit := textutil.ContainsFolded(content.Text, needles); hit {
		logger.Info("submission blocked by blacklist",
			logging.String(logging.FieldEventType, "blacklist_reject"),
			logging.String("keyword", keyword),
		)
		p.writeLog(ctx, logger, "blacklist_reject", map[string]any{
			"user_id": userID,
			"keyword": keyword,
			"preview": textutil.Preview(content.Text, 50),
		})
		return Result{Rejection: BlacklistRejected, Keyword: keyword}, nil
	}

	if msg, ok := p.policy.Validate(content.Text); !ok {
		logger.Debug("submission failed validation", logging.String("reason", msg))
		return Result{Rejection: InvalidContent, Message: msg}, nil
	}

	post, err := p.store.CreatePost(ctx, store.NewPost{
		AuthorID:    userID,
		Text:        strings.TrimSpace(content.Text),
		PhotoID:     content.PhotoID,
		SubmittedAt: p.now(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("create post: %w", err)
	}
	ctx = services.WithPostID(ctx, post.ID)
	logger = logging.WithContext(ctx, p.logger)
	logger.Info("post submitted",
		logging.String(logging.FieldEventType, "new_post"),
		logging.Bool("photo", post.PhotoID != ""),
	)
	p.writeLog(ctx, logger, "new_post", map[string]any{
		"post_id": post.ID,
		"user_id": userID,
	})

	reviewCtx := context.WithoutCancel(ctx)
	p.dispatch(func() {
		if _, err := p.reviewer.PublishForReview(reviewCtx, post); err != nil {
			logging.WarnWithContext(logging.WithContext(reviewCtx, p.logger), "review render failed", "review_render_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "post stays pending without a review message"),
			)
		}
	})
	return Result{Post: post}, nil
}

func (p *Pipeline) writeLog(ctx context.Context, logger *slog.Logger, action string, data any) {
	if err := p.store.WriteLog(ctx, action, data); err != nil {
		logger.Warn("write action log failed", logging.String("action", action), logging.Error(err))
	}
}

// PolicyFrom reads content rules from configuration.
func PolicyFrom(cfg *config.Config) Policy {
	return Policy{
		MinLength: cfg.Limits.MinPostLength,
		MaxLength: cfg.Limits.MaxPostLength,
		Markers:   append([]string(nil), cfg.Limits.RequiredMarkers...),
	}
}

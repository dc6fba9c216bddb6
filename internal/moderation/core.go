package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/notifier"
	"moderbot/internal/services"
	"moderbot/internal/store"
)

// Store is the persistence the core depends on.
type Store interface {
	GetPost(ctx context.Context, id int64) (*store.Post, error)
	SetPostStatus(ctx context.Context, id int64, from store.Status, to store.State) (bool, error)
	SetReviewRefs(ctx context.Context, id int64, refs store.ReviewRefs) error
	GetUser(ctx context.Context, id int64) (*store.User, error)
	WriteLog(ctx context.Context, action string, data any) error
}

// Notifier is the rendering surface the core depends on. Every call except
// PublishToChannel is best effort.
type Notifier interface {
	RenderToModerators(ctx context.Context, view notifier.View) (store.MessageRef, error)
	RenderToAdmins(ctx context.Context, view notifier.View) (store.MessageRef, error)
	EditModeratorView(ctx context.Context, ref store.MessageRef, view notifier.View) error
	EditAdminView(ctx context.Context, ref store.MessageRef, view notifier.View) error
	SendToModerators(ctx context.Context, view notifier.View) (store.MessageRef, error)
	NotifyUser(ctx context.Context, userID int64, view notifier.View) error
	PublishToChannel(ctx context.Context, view notifier.View) (store.MessageRef, error)
}

// Config holds the reject-reason timing.
type Config struct {
	ReasonTimeout time.Duration
	ReasonGrace   time.Duration
}

// ConfigFrom reads the [limits] timing.
func ConfigFrom(cfg *config.Config) Config {
	return Config{ReasonTimeout: cfg.RejectReasonTimeout(), ReasonGrace: cfg.RejectReasonGrace()}
}

// Option customizes a Core.
type Option func(*Core)

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(clock Clock) Option {
	return func(c *Core) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// Core is the moderation state machine.
type Core struct {
	store    Store
	notifier Notifier
	clock    Clock
	cfg      Config
	logger   *slog.Logger
	locks    *postLocks
	pending  *registry
}

const watchdogRenderTimeout = 30 * time.Second

// New constructs a Core.
func New(st Store, n Notifier, cfg Config, logger *slog.Logger, opts ...Option) *Core {
	if cfg.ReasonTimeout <= 0 {
		cfg.ReasonTimeout = 60 * time.Second
	}
	if cfg.ReasonGrace < 0 {
		cfg.ReasonGrace = 0
	}
	if n == nil {
		n = notifier.Noop{}
	}
	c := &Core{
		store:    st,
		notifier: n,
		clock:    SystemClock(),
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "moderation"),
		locks:    newPostLocks(),
		pending:  newRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Core) postLogger(ctx context.Context, postID int64, actor store.Actor) *slog.Logger {
	logger := logging.WithContext(services.WithPostID(ctx, postID), c.logger)
	if actor.ID != 0 {
		logger = logger.With(logging.ModeratorID(actor.ID))
	}
	return logger
}

// PublishForReview renders a new post to the moderators and admins topics and
// stores the resulting refs. Failures are logged and joined into the result.
func (c *Core) PublishForReview(ctx context.Context, post *store.Post) (store.ReviewRefs, error) {
	logger := c.postLogger(ctx, post.ID, store.Actor{})
	var (
		refs store.ReviewRefs
		errs []error
	)

	ref, err := c.notifier.RenderToModerators(ctx, ModeratorView(post))
	if err != nil {
		logging.WarnWithContext(logger, "moderator review render failed", "review_render_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "post is only reachable through admin tooling"),
		)
		errs = append(errs, services.Wrap(services.ErrNotification, "moderation", "render moderators", "", err))
	} else {
		refs.Moderators = ref
	}

	ref, err = c.notifier.RenderToAdmins(ctx, AdminView(post, c.author(ctx, post.AuthorID)))
	if err != nil {
		logging.WarnWithContext(logger, "admin review render failed", "review_render_failed", logging.Error(err))
		errs = append(errs, services.Wrap(services.ErrNotification, "moderation", "render admins", "", err))
	} else {
		refs.Admins = ref
	}

	if !refs.Moderators.IsZero() || !refs.Admins.IsZero() {
		if err := c.store.SetReviewRefs(ctx, post.ID, refs); err != nil {
			logging.ErrorWithContext(logger, "persist review refs failed", "review_refs_failed", logging.Error(err))
			errs = append(errs, err)
		}
	}
	logger.Info("post sent for review",
		logging.Bool("moderators", !refs.Moderators.IsZero()),
		logging.Bool("admins", !refs.Admins.IsZero()),
	)
	return refs, errors.Join(errs...)
}

// Publish delivers a pending post to the channel and then commits it as
// published. A DeliveryFailed outcome carries the delivery error and leaves
// the post pending. A non-nil error with an empty outcome is a store failure.
func (c *Core) Publish(ctx context.Context, postID int64, moderator store.Actor) (Outcome, error) {
	unlock := c.locks.lock(postID)
	defer unlock()
	logger := c.postLogger(ctx, postID, moderator)

	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("publish post %d: %w", postID, err)
	}
	if post == nil {
		return NotFound, nil
	}
	if post.Status().Terminal() {
		logger.Info("publish ignored; post already decided", logging.String("status", string(post.Status())))
		return AlreadyDecided, nil
	}

	if _, err := c.notifier.PublishToChannel(ctx, ChannelView(post)); err != nil {
		logging.WarnWithContext(logger, "channel delivery failed", "delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "post stays pending; moderator may retry"),
		)
		return DeliveryFailed, services.Wrap(services.ErrDelivery, "moderation", "publish", fmt.Sprintf("post %d", postID), err)
	}

	decided := store.Published{Moderator: moderator, At: c.clock.Now()}
	committed, err := c.store.SetPostStatus(ctx, postID, store.StatusPending, decided)
	if err != nil {
		logging.ErrorWithContext(logger, "post delivered but status not recorded", "status_commit_failed", logging.Error(err))
		return "", fmt.Errorf("publish post %d: %w", postID, err)
	}
	if !committed {
		return AlreadyDecided, nil
	}
	post.State = decided

	if pr, ok := c.pending.remove(postID, ""); ok {
		logger.Info("discarded pending rejection", logging.Int64("rejecting_moderator", pr.Moderator.ID))
	}
	c.renderDecision(ctx, logger, post)
	c.notifyAuthor(ctx, logger, post.AuthorID, authorPublished)
	c.writeLog(ctx, logger, "publish", map[string]any{"post_id": postID, "moderator_id": moderator.ID})
	c.sendModerators(ctx, logger, publishedNotice)
	logger.Info("post published")
	return OK, nil
}

// RequestReject starts the reject-reason interaction for a pending post.
// Another moderator already rejecting the post yields InProgress. A moderator
// holding a rejection for a different post has that one rolled back.
func (c *Core) RequestReject(ctx context.Context, postID int64, moderator store.Actor) (Outcome, error) {
	outcome, displaced, err := c.requestReject(ctx, postID, moderator)
	if displaced != nil {
		c.rollback(ctx, displaced, "replaced by a newer rejection")
	}
	return outcome, err
}

func (c *Core) requestReject(ctx context.Context, postID int64, moderator store.Actor) (Outcome, *PendingRejection, error) {
	unlock := c.locks.lock(postID)
	defer unlock()
	logger := c.postLogger(ctx, postID, moderator)

	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return "", nil, fmt.Errorf("reject post %d: %w", postID, err)
	}
	if post == nil {
		return NotFound, nil, nil
	}
	if post.Status().Terminal() {
		logger.Info("reject ignored; post already decided", logging.String("status", string(post.Status())))
		return AlreadyDecided, nil, nil
	}
	if existing := c.pending.lookup(postID); existing != nil && existing.Moderator.ID != moderator.ID {
		return InProgress, nil, nil
	}

	pr := &PendingRejection{
		PostID:    postID,
		Moderator: moderator,
		Original:  ModeratorView(post),
		Ref:       post.ReviewRefs.Moderators,
		Deadline:  c.clock.Now().Add(c.cfg.ReasonTimeout),
		token:     uuid.NewString(),
	}
	token := pr.token
	pr.timer = c.clock.AfterFunc(c.cfg.ReasonTimeout, func() { c.expire(postID, token) })
	displaced := c.pending.insert(pr)

	if !pr.Ref.IsZero() {
		if err := c.notifier.EditModeratorView(ctx, pr.Ref, RejectingView(post, moderator)); err != nil {
			logging.WarnWithContext(logger, "mark review as rejecting failed", "render_failed", logging.Error(err))
		}
	}
	c.sendModerators(ctx, logger, ReasonPrompt(postID, int(c.cfg.ReasonTimeout/time.Second)))
	logger.Info("awaiting rejection reason", logging.Duration("timeout", c.cfg.ReasonTimeout))
	return OK, displaced, nil
}

// SupplyReason completes a rejection. The reason must come from the moderator
// holding the PendingRejection and arrive before the deadline plus grace.
func (c *Core) SupplyReason(ctx context.Context, postID int64, moderator store.Actor, reason string) (Outcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrEmptyReason
	}

	unlock := c.locks.lock(postID)
	defer unlock()
	logger := c.postLogger(ctx, postID, moderator)

	pr := c.pending.lookup(postID)
	if pr == nil || pr.Moderator.ID != moderator.ID {
		if c.pending.consumeExpired(moderator.ID, postID, c.clock.Now()) {
			c.sendModerators(ctx, logger, expiredNotice)
			return Expired, nil
		}
		return NotFound, nil
	}
	if _, ok := c.pending.remove(postID, pr.token); !ok {
		return NotFound, nil
	}
	if c.clock.Now().After(pr.Deadline.Add(c.cfg.ReasonGrace)) {
		logger.Info("rejection reason arrived after deadline")
		c.restore(ctx, logger, pr)
		c.sendModerators(ctx, logger, expiredNotice)
		return Expired, nil
	}

	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		c.restore(ctx, logger, pr)
		return "", fmt.Errorf("reject post %d: %w", postID, err)
	}
	if post == nil {
		return NotFound, nil
	}
	if post.Status().Terminal() {
		return AlreadyDecided, nil
	}

	decided := store.Rejected{Moderator: moderator, At: c.clock.Now(), Reason: reason}
	committed, err := c.store.SetPostStatus(ctx, postID, store.StatusPending, decided)
	if err != nil {
		c.restore(ctx, logger, pr)
		return "", fmt.Errorf("reject post %d: %w", postID, err)
	}
	if !committed {
		return AlreadyDecided, nil
	}
	post.State = decided

	c.renderDecision(ctx, logger, post)
	c.notifyAuthor(ctx, logger, post.AuthorID, authorRejected(reason, moderator))
	c.writeLog(ctx, logger, "reject", map[string]any{"post_id": postID, "moderator_id": moderator.ID, "reason": reason})
	c.sendModerators(ctx, logger, reasonSent)
	logger.Info("post rejected")
	return OK, nil
}

// CancelReject abandons the moderator's rejection of postID and restores the
// original review controls.
func (c *Core) CancelReject(ctx context.Context, postID int64, moderator store.Actor) (Outcome, error) {
	unlock := c.locks.lock(postID)
	defer unlock()
	logger := c.postLogger(ctx, postID, moderator)

	pr := c.pending.lookup(postID)
	if pr == nil || pr.Moderator.ID != moderator.ID {
		return Mismatch, nil
	}
	if _, ok := c.pending.remove(postID, pr.token); !ok {
		return Mismatch, nil
	}
	c.restore(ctx, logger, pr)
	logger.Info("rejection cancelled")
	return OK, nil
}

// ReasonTarget returns the post a moderator's next text message answers,
// including a rejection that just timed out.
func (c *Core) ReasonTarget(moderatorID int64) (int64, bool) {
	return c.pending.target(moderatorID, c.clock.Now())
}

// Outstanding lists the open rejections.
func (c *Core) Outstanding() []PendingRejection {
	return c.pending.snapshot()
}

// Shutdown cancels every open rejection and restores its review message.
func (c *Core) Shutdown(ctx context.Context) int {
	drained := c.pending.drain()
	for _, pr := range drained {
		c.rollback(ctx, pr, "shutdown")
	}
	return len(drained)
}

// expire is the watchdog callback. It only acts if the rejection it was armed
// for is still outstanding.
func (c *Core) expire(postID int64, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), watchdogRenderTimeout)
	defer cancel()

	unlock := c.locks.lock(postID)
	defer unlock()

	pr, ok := c.pending.remove(postID, token)
	if !ok {
		return
	}
	logger := c.postLogger(ctx, postID, pr.Moderator)
	c.pending.markExpired(pr.Moderator.ID, postID, pr.Deadline.Add(c.cfg.ReasonGrace))
	c.restore(ctx, logger, pr)
	c.sendModerators(ctx, logger, expiredNotice)
	logger.Info("rejection reason timed out; review restored")
}

func (c *Core) rollback(ctx context.Context, pr *PendingRejection, why string) {
	unlock := c.locks.lock(pr.PostID)
	defer unlock()
	logger := c.postLogger(ctx, pr.PostID, pr.Moderator)
	if newer := c.pending.lookup(pr.PostID); newer != nil {
		// another rejection took the post after this one was displaced
		logger.Info("rollback skipped", logging.String("reason", why), logging.Int64("held_by", newer.Moderator.ID))
		return
	}
	c.restore(ctx, logger, pr)
	logger.Info("rejection rolled back", logging.String("reason", why))
}

// restore puts the original review render back. Callers hold the post lock.
func (c *Core) restore(ctx context.Context, logger *slog.Logger, pr *PendingRejection) {
	if pr.Ref.IsZero() {
		return
	}
	post, err := c.store.GetPost(ctx, pr.PostID)
	if err != nil {
		logging.WarnWithContext(logger, "restore review skipped", "restore_failed", logging.Error(err))
		return
	}
	if post == nil || post.Status().Terminal() {
		return
	}
	if err := c.notifier.EditModeratorView(ctx, pr.Ref, pr.Original); err != nil {
		logging.WarnWithContext(logger, "restore review failed", "restore_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "review message keeps the cancel control"),
		)
	}
}

func (c *Core) renderDecision(ctx context.Context, logger *slog.Logger, post *store.Post) {
	if ref := post.ReviewRefs.Moderators; !ref.IsZero() {
		if err := c.notifier.EditModeratorView(ctx, ref, DecidedModeratorView(post)); err != nil {
			logging.WarnWithContext(logger, "moderator view update failed", "render_failed", logging.Error(err))
		}
	}
	if ref := post.ReviewRefs.Admins; !ref.IsZero() {
		if err := c.notifier.EditAdminView(ctx, ref, AdminView(post, c.author(ctx, post.AuthorID))); err != nil {
			logging.WarnWithContext(logger, "admin view update failed", "render_failed", logging.Error(err))
		}
	}
}

func (c *Core) notifyAuthor(ctx context.Context, logger *slog.Logger, authorID int64, view notifier.View) {
	if err := c.notifier.NotifyUser(ctx, authorID, view); err != nil {
		logging.WarnWithContext(logger, "author notification failed", "notification_failed",
			logging.UserID(authorID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "author is not told about the decision"),
		)
	}
}

func (c *Core) sendModerators(ctx context.Context, logger *slog.Logger, view notifier.View) {
	if _, err := c.notifier.SendToModerators(ctx, view); err != nil {
		logging.WarnWithContext(logger, "moderators message failed", "notification_failed", logging.Error(err))
	}
}

func (c *Core) writeLog(ctx context.Context, logger *slog.Logger, action string, data any) {
	if err := c.store.WriteLog(ctx, action, data); err != nil {
		logging.WarnWithContext(logger, "action log write failed", "action_log_failed", logging.Error(err))
	}
}

func (c *Core) author(ctx context.Context, id int64) *store.User {
	user, err := c.store.GetUser(ctx, id)
	if err != nil {
		c.logger.Debug("author lookup failed", logging.UserID(id), logging.Error(err))
		return nil
	}
	return user
}

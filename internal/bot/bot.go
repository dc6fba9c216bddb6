package bot

import (
	"context"
	"log/slog"
	"time"

	"moderbot/internal/admin"
	"moderbot/internal/config"
	"moderbot/internal/gatekeeper"
	"moderbot/internal/logging"
	"moderbot/internal/moderation"
	"moderbot/internal/notifier"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/submission"
	"moderbot/internal/telegram"
)

// Store is the persistence the router reads directly.
type Store interface {
	CreateUser(ctx context.Context, u store.User) (bool, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	SetUserSubscribed(ctx context.Context, id int64, subscribed bool) error
	GetBan(ctx context.Context, userID int64) (*store.Ban, error)
	GetPost(ctx context.Context, id int64) (*store.Post, error)
	CountPostsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// Gate decides whether a user may submit.
type Gate interface {
	CanSubmit(ctx context.Context, userID int64) (gatekeeper.Verdict, error)
	PostsToday(ctx context.Context, userID int64) (int, error)
	DailyLimit() int
}

// Submitter turns content into a pending post.
type Submitter interface {
	Submit(ctx context.Context, userID int64, content submission.Content) (submission.Result, error)
}

// Moderation is the decision state machine.
type Moderation interface {
	Publish(ctx context.Context, postID int64, moderator store.Actor) (moderation.Outcome, error)
	RequestReject(ctx context.Context, postID int64, moderator store.Actor) (moderation.Outcome, error)
	SupplyReason(ctx context.Context, postID int64, moderator store.Actor, reason string) (moderation.Outcome, error)
	CancelReject(ctx context.Context, postID int64, moderator store.Actor) (moderation.Outcome, error)
	ReasonTarget(moderatorID int64) (int64, bool)
}

// SubscriptionChecker verifies required channel memberships.
type SubscriptionChecker interface {
	Verify(ctx context.Context, userID int64) ([]store.Subscription, error)
	Prompt(missing []store.Subscription) notifier.View
}

// CallbackAnswerer acknowledges inline button presses.
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, id, text string, showAlert bool) error
}

// Deps are the collaborators a Bot routes to. Subscriptions may be nil.
type Deps struct {
	Store         Store
	Gate          Gate
	Submissions   Submitter
	Moderation    Moderation
	Subscriptions SubscriptionChecker
	Admin         *admin.Service
	Notifier      notifier.Service
	Callbacks     CallbackAnswerer
}

// Bot routes updates.
type Bot struct {
	chats    config.Chats
	deps     Deps
	now      func() time.Time
	dispatch func(func())
	logger   *slog.Logger
}

// Option customizes a Bot.
type Option func(*Bot)

// WithNow overrides the clock used for profile statistics.
func WithNow(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

// WithDispatch replaces how long-running commands such as /broadcast are
// launched. The default runs them on a new goroutine.
func WithDispatch(dispatch func(func())) Option {
	return func(b *Bot) {
		if dispatch != nil {
			b.dispatch = dispatch
		}
	}
}

// New builds a Bot.
func New(cfg *config.Config, deps Deps, logger *slog.Logger, opts ...Option) *Bot {
	if deps.Notifier == nil {
		deps.Notifier = notifier.Noop{}
	}
	b := &Bot{
		chats:    cfg.Chats,
		deps:     deps,
		now:      func() time.Time { return time.Now().UTC() },
		dispatch: func(f func()) { go f() },
		logger:   logging.NewComponentLogger(logger, "bot"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wrap converts a raw update into an Incoming. It returns nil for updates the
// bot does not handle, including anything from an ignored chat.
func (b *Bot) Wrap(update telegram.Update) Incoming {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.From.IsBot {
			return nil
		}
		chat := ChatContext{
			Kind:     classify(b.chats, msg.Chat, msg.MessageThreadID),
			ChatID:   msg.Chat.ID,
			ThreadID: msg.MessageThreadID,
		}
		return &IncomingMessage{Message: msg, chat: chat, out: b.deps.Notifier}
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		chat := ChatContext{Kind: ChatPrivate, ChatID: q.From.ID}
		if q.Message != nil {
			chat = ChatContext{
				Kind:     classify(b.chats, q.Message.Chat, q.Message.MessageThreadID),
				ChatID:   q.Message.Chat.ID,
				ThreadID: q.Message.MessageThreadID,
			}
		}
		return &IncomingCallback{Query: q, chat: chat, out: b.deps.Notifier, answer: b.deps.Callbacks}
	default:
		return nil
	}
}

// Handle routes one update.
func (b *Bot) Handle(ctx context.Context, update telegram.Update) {
	in := b.Wrap(update)
	if in == nil {
		return
	}
	ctx = services.WithUserID(ctx, in.From().ID)
	logger := logging.WithContext(ctx, b.logger)

	switch v := in.(type) {
	case *IncomingMessage:
		if v.ChatContext().Kind == ChatIgnored {
			logger.Debug("message from unmanaged chat ignored",
				logging.Int64("chat_id", v.chat.ChatID),
				logging.Int64("thread_id", v.chat.ThreadID),
			)
			return
		}
		b.handleMessage(ctx, logger, v)
	case *IncomingCallback:
		if v.ChatContext().Kind == ChatIgnored {
			b.answer(ctx, logger, v, "⚠️ This action is not available here", true)
			return
		}
		b.handleCallback(ctx, logger, v)
	}
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, in Incoming, view notifier.View) {
	if err := in.Reply(ctx, view); err != nil {
		logging.WarnWithContext(logger, "reply failed", "reply_failed",
			logging.Error(err),
			logging.String("chat", in.ChatContext().Kind.String()),
			logging.String(logging.FieldImpact, "user did not receive the response"),
		)
	}
}

func (b *Bot) answer(ctx context.Context, logger *slog.Logger, cb *IncomingCallback, text string, alert bool) {
	if err := cb.Answer(ctx, text, alert); err != nil {
		logger.Debug("answer callback failed", logging.Error(err))
	}
}

func (b *Bot) replyText(ctx context.Context, logger *slog.Logger, in Incoming, text string) {
	b.reply(ctx, logger, in, notifier.Text(text))
}

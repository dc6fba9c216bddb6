package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moderbot/internal/admin"
	"moderbot/internal/gatekeeper"
	"moderbot/internal/logging"
	"moderbot/internal/moderation"
	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/submission"
	"moderbot/internal/textutil"
)

// parseCommand splits "/cmd@bot args" into "cmd" and "args". Non-commands
// return an empty command.
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(strings.TrimPrefix(head, "/"), "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, in *IncomingMessage) {
	cmd, args := parseCommand(in.Text())
	switch in.chat.Kind {
	case ChatPrivate:
		switch cmd {
		case "start":
			b.start(ctx, logger, in)
		case "profile":
			b.profile(ctx, logger, in)
		case "":
			b.submit(ctx, logger, in)
		default:
			if !b.adminCommand(ctx, logger, in, cmd, args) {
				b.replyText(ctx, logger, in, "🤷 Unknown command. Send /start to see what the bot can do.")
			}
		}
	case ChatModerators:
		if cmd == "" {
			b.reason(ctx, logger, in)
		}
	case ChatAdmins:
		if cmd != "" {
			b.adminCommand(ctx, logger, in, cmd, args)
		}
	}
}

func (b *Bot) start(ctx context.Context, logger *slog.Logger, in *IncomingMessage) {
	from := in.From()
	ban, err := b.deps.Store.GetBan(ctx, from.ID)
	if err != nil {
		b.internalError(ctx, logger, in, "load ban", err)
		return
	}
	if ban != nil {
		b.reply(ctx, logger, in, admin.BanNotice(*ban))
		return
	}
	created, err := b.deps.Store.CreateUser(ctx, store.User{ID: from.ID, Username: from.Username, RegisteredAt: b.now()})
	if err != nil {
		b.internalError(ctx, logger, in, "register user", err)
		return
	}
	if created {
		logger.Info("user registered", logging.String("username", from.Username))
	}
	if b.deps.Subscriptions != nil {
		missing, err := b.deps.Subscriptions.Verify(ctx, from.ID)
		if err != nil {
			logger.Warn("subscription check failed", logging.Error(err))
		}
		if len(missing) > 0 {
			b.reply(ctx, logger, in, b.deps.Subscriptions.Prompt(missing))
			return
		}
	}
	b.reply(ctx, logger, in, welcomeView())
}

func (b *Bot) profile(ctx context.Context, logger *slog.Logger, in *IncomingMessage) {
	from := in.From()
	user, err := b.deps.Store.GetUser(ctx, from.ID)
	if err != nil {
		b.internalError(ctx, logger, in, "load user", err)
		return
	}
	if user == nil {
		b.replyText(ctx, logger, in, notRegistered)
		return
	}
	today, err := b.deps.Gate.PostsToday(ctx, from.ID)
	if err != nil {
		b.internalError(ctx, logger, in, "count posts", err)
		return
	}
	week, err := b.deps.Store.CountPostsByUserSince(ctx, from.ID, store.StartOfDay(b.now()).AddDate(0, 0, -6))
	if err != nil {
		b.internalError(ctx, logger, in, "count posts", err)
		return
	}
	b.reply(ctx, logger, in, profileView(user, today, b.deps.Gate.DailyLimit(), week))
}

func (b *Bot) submit(ctx context.Context, logger *slog.Logger, in *IncomingMessage) {
	from := in.From()
	user, err := b.deps.Store.GetUser(ctx, from.ID)
	if err != nil {
		b.internalError(ctx, logger, in, "load user", err)
		return
	}
	if user == nil {
		b.replyText(ctx, logger, in, notRegistered)
		return
	}

	verdict, err := b.deps.Gate.CanSubmit(ctx, from.ID)
	if err != nil {
		b.internalError(ctx, logger, in, "check eligibility", err)
		return
	}
	if verdict.Subscribed && !user.SubscriptionVerified {
		if err := b.deps.Store.SetUserSubscribed(ctx, from.ID, true); err != nil {
			logger.Warn("record subscription check failed", logging.Error(err))
		}
	}
	if !verdict.Allowed {
		logger.Info("submission denied", logging.String("reason", string(verdict.Reason)))
		b.reply(ctx, logger, in, b.verdictView(verdict))
		return
	}

	content := submission.Content{Text: in.Message.Content(), PhotoID: in.Message.LargestPhoto()}
	res, err := b.deps.Submissions.Submit(ctx, from.ID, content)
	if err != nil {
		b.internalError(ctx, logger, in, "submit post", err)
		return
	}
	switch res.Rejection {
	case submission.BlacklistRejected:
		b.replyText(ctx, logger, in, fmt.Sprintf("🚫 Your post contains a forbidden word: «%s»", textutil.EscapeHTML(res.Keyword)))
	case submission.InvalidContent:
		b.replyText(ctx, logger, in, "⚠️ Post not accepted: "+textutil.EscapeHTML(res.Message))
	default:
		b.replyText(ctx, logger, in, fmt.Sprintf("✅ Post #%d sent to moderation", res.Post.ID))
	}
}

func (b *Bot) verdictView(v gatekeeper.Verdict) notifier.View {
	switch v.Reason {
	case gatekeeper.Banned:
		return admin.BanNotice(*v.Ban)
	case gatekeeper.SubscriptionRequired:
		if b.deps.Subscriptions != nil {
			return b.deps.Subscriptions.Prompt(v.Missing)
		}
		return notifier.Text("📢 Subscribe to the required channels first.")
	case gatekeeper.RateLimited:
		return notifier.Text(fmt.Sprintf("⏳ Daily limit reached: %d/%d posts today. Try again tomorrow.", v.Used, v.Limit))
	default:
		return notifier.Text("⚠️ You cannot submit posts right now.")
	}
}

// reason treats a plain moderators-topic message as the rejection reason of
// the sender's open rejection, if there is one.
func (b *Bot) reason(ctx context.Context, logger *slog.Logger, in *IncomingMessage) {
	from := in.From()
	postID, ok := b.deps.Moderation.ReasonTarget(from.ID)
	if !ok {
		return
	}
	outcome, err := b.deps.Moderation.SupplyReason(ctx, postID, from, in.Text())
	switch {
	case errors.Is(err, moderation.ErrEmptyReason):
		b.replyText(ctx, logger, in, "✍️ Send the rejection reason as text.")
		return
	case err != nil:
		b.internalError(ctx, logger, in, "supply reason", err)
		return
	}
	if outcome == moderation.AlreadyDecided {
		b.replyText(ctx, logger, in, alreadyHandled)
	}
}

func (b *Bot) internalError(ctx context.Context, logger *slog.Logger, in Incoming, op string, err error) {
	logging.ErrorWithContext(logger, "request failed", "request_failed",
		logging.String("operation", op),
		logging.Error(err),
	)
	b.replyText(ctx, logger, in, "⚠️ Something went wrong. Please try again later.")
}

package bot

import (
	"context"
	"log/slog"

	"moderbot/internal/logging"
	"moderbot/internal/moderation"
	"moderbot/internal/notifier"
	"moderbot/internal/services"
	"moderbot/internal/subscriptions"
)

func (b *Bot) handleCallback(ctx context.Context, logger *slog.Logger, cb *IncomingCallback) {
	data := cb.Query.Data
	if data == subscriptions.CheckSubscriptionData {
		b.checkSubscription(ctx, logger, cb)
		return
	}
	action, postID, ok := moderation.ParseCallback(data)
	if !ok {
		b.answer(ctx, logger, cb, "", false)
		return
	}
	ctx = services.WithPostID(ctx, postID)
	logger = logging.WithContext(ctx, b.logger)
	from := cb.From()

	switch action {
	case moderation.ActionDisabled:
		b.answer(ctx, logger, cb, alreadyHandled, false)
	case moderation.ActionWhoPublished, moderation.ActionWhoRejected:
		if cb.chat.Kind != ChatAdmins {
			b.answer(ctx, logger, cb, "⚠️ Available only in the admins topic", true)
			return
		}
		b.whoDecided(ctx, logger, cb, postID)
	case moderation.ActionPublish, moderation.ActionReject, moderation.ActionCancelReject:
		if cb.chat.Kind != ChatModerators {
			b.answer(ctx, logger, cb, "⚠️ Available only in the moderation topic", true)
			return
		}
		var (
			outcome moderation.Outcome
			err     error
		)
		switch action {
		case moderation.ActionPublish:
			outcome, err = b.deps.Moderation.Publish(ctx, postID, from)
		case moderation.ActionReject:
			outcome, err = b.deps.Moderation.RequestReject(ctx, postID, from)
		default:
			outcome, err = b.deps.Moderation.CancelReject(ctx, postID, from)
		}
		if err != nil && outcome == "" {
			logging.ErrorWithContext(logger, "moderation action failed", "moderation_failed",
				logging.Error(err),
				logging.String("kind", string(moderation.Classify(err))),
			)
			b.answer(ctx, logger, cb, "⚠️ Something went wrong, try again", true)
			return
		}
		text, alert := outcomeAnswer(action, outcome)
		logger.Info("moderation action",
			logging.String(logging.FieldEventType, "moderation_action"),
			logging.ModeratorID(from.ID),
			logging.String("outcome", string(outcome)),
			logging.String("kind", string(outcome.Kind())),
		)
		b.answer(ctx, logger, cb, text, alert)
	default:
		b.answer(ctx, logger, cb, "", false)
	}
}

// outcomeAnswer is the toast shown to the moderator. Delivery failures and
// blocked actions are alerts.
func outcomeAnswer(action moderation.Action, outcome moderation.Outcome) (string, bool) {
	switch outcome {
	case moderation.OK:
		switch action {
		case moderation.ActionPublish:
			return "✅ Published", false
		case moderation.ActionReject:
			return "✍️ Send the rejection reason in this topic", false
		default:
			return "↩️ Rejection cancelled", false
		}
	case moderation.AlreadyDecided:
		return alreadyHandled, false
	case moderation.DeliveryFailed:
		return "❌ Could not publish to the channel. The post is still pending, try again.", true
	case moderation.InProgress:
		return "⏳ Another moderator is already rejecting this post", true
	case moderation.Mismatch:
		return "Nothing to cancel", false
	case moderation.NotFound:
		return "Post not found", true
	case moderation.Expired:
		return "⚠️ Time is up, action cancelled", true
	default:
		return "", false
	}
}

func (b *Bot) whoDecided(ctx context.Context, logger *slog.Logger, cb *IncomingCallback, postID int64) {
	post, err := b.deps.Store.GetPost(ctx, postID)
	if err != nil {
		logger.Error("load post failed", logging.Error(err))
		b.answer(ctx, logger, cb, "⚠️ Something went wrong", true)
		return
	}
	if post == nil {
		b.answer(ctx, logger, cb, "Post not found", true)
		return
	}
	details, ok := moderation.DecisionDetails(post)
	if !ok {
		b.answer(ctx, logger, cb, "The post has not been decided yet", true)
		return
	}
	b.answer(ctx, logger, cb, "", false)
	b.reply(ctx, logger, cb, notifier.Text(details))
}

func (b *Bot) checkSubscription(ctx context.Context, logger *slog.Logger, cb *IncomingCallback) {
	if cb.chat.Kind != ChatPrivate {
		b.answer(ctx, logger, cb, "⚠️ Available only in private messages", true)
		return
	}
	if b.deps.Subscriptions == nil {
		b.answer(ctx, logger, cb, "", false)
		b.reply(ctx, logger, cb, welcomeView())
		return
	}
	missing, err := b.deps.Subscriptions.Verify(ctx, cb.From().ID)
	if err != nil {
		logger.Warn("subscription check failed", logging.Error(err))
	}
	if len(missing) > 0 {
		b.answer(ctx, logger, cb, "😡 You have not subscribed to every channel yet", true)
		b.reply(ctx, logger, cb, b.deps.Subscriptions.Prompt(missing))
		return
	}
	b.answer(ctx, logger, cb, "✅ Subscription confirmed", false)
	b.reply(ctx, logger, cb, welcomeView())
}

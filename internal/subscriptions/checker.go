package subscriptions

import (
	"context"
	"fmt"
	"log/slog"

	"moderbot/internal/logging"
	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/telegram"
)

// CheckSubscriptionData is the callback of the "I subscribed" button.
const CheckSubscriptionData = "check_subscription"

// MemberLookup reports a user's membership in a chat.
type MemberLookup interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

// UserStore persists the per-user verified flag.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	SetUserSubscribed(ctx context.Context, id int64, verified bool) error
}

// Checker verifies channel requirements for a user.
type Checker struct {
	registry *Registry
	members  MemberLookup
	users    UserStore
	logger   *slog.Logger
}

// NewChecker builds a Checker. A nil members lookup treats every channel as unmet.
func NewChecker(registry *Registry, members MemberLookup, users UserStore, logger *slog.Logger) *Checker {
	return &Checker{
		registry: registry,
		members:  members,
		users:    users,
		logger:   logging.NewComponentLogger(logger, "subscriptions"),
	}
}

// Missing returns the channel requirements userID does not meet. Lookup
// errors count as unmet.
func (c *Checker) Missing(ctx context.Context, userID int64) []store.Subscription {
	var missing []store.Subscription
	for _, sub := range c.registry.Channels() {
		if c.members == nil {
			missing = append(missing, sub)
			continue
		}
		member, err := c.members.GetChatMember(ctx, sub.TargetID, userID)
		if err != nil {
			c.logger.Warn("membership check failed",
				logging.UserID(userID),
				logging.Int64("chat_id", sub.TargetID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "membership_check_failed"),
			)
			missing = append(missing, sub)
			continue
		}
		if !member.IsSubscribed() {
			missing = append(missing, sub)
		}
	}
	return missing
}

// Verify checks userID now and records the result.
func (c *Checker) Verify(ctx context.Context, userID int64) ([]store.Subscription, error) {
	missing := c.Missing(ctx, userID)
	return missing, c.Record(ctx, userID, len(missing) == 0)
}

// Satisfied trusts a previously recorded verification and checks otherwise.
// It records nothing; callers persist a passing check with Record.
func (c *Checker) Satisfied(ctx context.Context, userID int64) (bool, []store.Subscription, error) {
	if len(c.registry.Channels()) == 0 {
		return true, nil, nil
	}
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	if user != nil && user.SubscriptionVerified {
		return true, nil, nil
	}
	missing := c.Missing(ctx, userID)
	return len(missing) == 0, missing, nil
}

// Record persists the outcome of a membership check.
func (c *Checker) Record(ctx context.Context, userID int64, subscribed bool) error {
	if err := c.users.SetUserSubscribed(ctx, userID, subscribed); err != nil {
		return fmt.Errorf("record subscription check: %w", err)
	}
	return nil
}

// Prompt renders PromptView with the registry's current bots.
func (c *Checker) Prompt(missing []store.Subscription) notifier.View {
	return PromptView(missing, c.registry.Bots())
}

// PromptView asks the user to follow the missing requirements plus every bot.
func PromptView(missing []store.Subscription, bots []store.Subscription) notifier.View {
	var controls notifier.Controls
	for _, sub := range append(append([]store.Subscription(nil), missing...), bots...) {
		icon := "📢"
		if sub.Type == store.SubscriptionBot {
			icon = "🤖"
		}
		controls = append(controls, []notifier.Button{{Text: icon + " " + sub.Name, URL: sub.URL}})
	}
	controls = append(controls, []notifier.Button{{Text: "✅ I subscribed", Data: CheckSubscriptionData}})
	return notifier.View{
		Text:     "📢 <b>To use the bot, subscribe to the channels below</b>\n\nThen press «I subscribed».",
		Controls: controls,
	}
}

package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/store"
	"moderbot/internal/telegram"
)

// Service is the rendering surface used by moderation, submission and admin code.
type Service interface {
	RenderToModerators(ctx context.Context, view View) (store.MessageRef, error)
	RenderToAdmins(ctx context.Context, view View) (store.MessageRef, error)
	EditModeratorView(ctx context.Context, ref store.MessageRef, view View) error
	EditAdminView(ctx context.Context, ref store.MessageRef, view View) error
	SendToModerators(ctx context.Context, view View) (store.MessageRef, error)
	SendToAdmins(ctx context.Context, view View) (store.MessageRef, error)
	NotifyUser(ctx context.Context, userID int64, view View) error
	PublishToChannel(ctx context.Context, view View) (store.MessageRef, error)
}

// Sender is the subset of the Bot API client the Telegram service needs.
type Sender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	SendPhoto(ctx context.Context, params telegram.SendPhotoParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, params telegram.EditMessageParams) error
	EditMessageCaption(ctx context.Context, params telegram.EditMessageParams) error
}

// New builds a Telegram-backed service. A nil sender yields a noop service.
func New(cfg *config.Config, sender Sender, logger *slog.Logger) Service {
	if sender == nil || cfg == nil {
		return Noop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Telegram{
		sender: sender,
		chats:  cfg.Chats,
		logger: logging.NewComponentLogger(logger, "notifier"),
	}
}

// Telegram renders views through the Bot API.
type Telegram struct {
	sender Sender
	chats  config.Chats
	logger *slog.Logger
}

// RenderToModerators posts a review view into the moderators topic.
func (t *Telegram) RenderToModerators(ctx context.Context, view View) (store.MessageRef, error) {
	return t.sendTopic(ctx, t.chats.ModeratorsChatID, t.chats.ModeratorsTopicID, view)
}

// RenderToAdmins posts a review view into the admins topic.
func (t *Telegram) RenderToAdmins(ctx context.Context, view View) (store.MessageRef, error) {
	return t.sendTopic(ctx, t.chats.AdminsChatID, t.chats.AdminsTopicID, view)
}

// SendToModerators posts an informational message into the moderators topic.
func (t *Telegram) SendToModerators(ctx context.Context, view View) (store.MessageRef, error) {
	return t.sendTopic(ctx, t.chats.ModeratorsChatID, t.chats.ModeratorsTopicID, view)
}

// SendToAdmins posts an informational message into the admins topic.
func (t *Telegram) SendToAdmins(ctx context.Context, view View) (store.MessageRef, error) {
	return t.sendTopic(ctx, t.chats.AdminsChatID, t.chats.AdminsTopicID, view)
}

// EditModeratorView re-renders a moderators-topic message.
func (t *Telegram) EditModeratorView(ctx context.Context, ref store.MessageRef, view View) error {
	return t.edit(ctx, ref, view)
}

// EditAdminView re-renders an admins-topic message.
func (t *Telegram) EditAdminView(ctx context.Context, ref store.MessageRef, view View) error {
	return t.edit(ctx, ref, view)
}

// NotifyUser sends a private message to a user.
func (t *Telegram) NotifyUser(ctx context.Context, userID int64, view View) error {
	if _, err := t.send(ctx, userID, 0, view); err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	return nil
}

// PublishToChannel delivers a post to the main channel. No topic fallback applies.
func (t *Telegram) PublishToChannel(ctx context.Context, view View) (store.MessageRef, error) {
	ref, err := t.send(ctx, t.chats.MainChannelID, 0, view)
	if err != nil {
		return store.MessageRef{}, fmt.Errorf("publish to channel %d: %w", t.chats.MainChannelID, err)
	}
	return ref, nil
}

func (t *Telegram) sendTopic(ctx context.Context, chatID, topicID int64, view View) (store.MessageRef, error) {
	ref, err := t.send(ctx, chatID, topicID, view)
	if err == nil || topicID == 0 || ctx.Err() != nil {
		if err != nil {
			return store.MessageRef{}, fmt.Errorf("send to chat %d: %w", chatID, err)
		}
		return ref, nil
	}
	logging.WarnWithContext(t.logger, "topic send failed; retrying without topic", "topic_fallback",
		logging.Int64("chat_id", chatID),
		logging.Int64("topic_id", topicID),
		logging.Error(err),
		logging.String(logging.FieldImpact, "message lands outside the configured topic"),
	)
	ref, fallbackErr := t.send(ctx, chatID, 0, view)
	if fallbackErr != nil {
		return store.MessageRef{}, fmt.Errorf("send to chat %d: %w", chatID, errors.Join(err, fallbackErr))
	}
	return ref, nil
}

func (t *Telegram) send(ctx context.Context, chatID, topicID int64, view View) (store.MessageRef, error) {
	var (
		msg *telegram.Message
		err error
	)
	if view.PhotoID != "" {
		msg, err = t.sender.SendPhoto(ctx, telegram.SendPhotoParams{
			ChatID:          chatID,
			MessageThreadID: topicID,
			Photo:           view.PhotoID,
			Caption:         view.Text,
			ParseMode:       telegram.ParseModeHTML,
			ReplyMarkup:     view.Controls.markup(),
		})
	} else {
		msg, err = t.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:                chatID,
			MessageThreadID:       topicID,
			Text:                  view.Text,
			ParseMode:             telegram.ParseModeHTML,
			DisableWebPagePreview: true,
			ReplyMarkup:           view.Controls.markup(),
		})
	}
	if err != nil {
		return store.MessageRef{}, err
	}
	return store.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (t *Telegram) edit(ctx context.Context, ref store.MessageRef, view View) error {
	if ref.IsZero() {
		return fmt.Errorf("edit message: %w", ErrNoRef)
	}
	params := telegram.EditMessageParams{
		ChatID:      ref.ChatID,
		MessageID:   ref.MessageID,
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: view.Controls.editMarkup(),
	}
	var err error
	if view.PhotoID != "" {
		params.Caption = view.Text
		err = t.sender.EditMessageCaption(ctx, params)
	} else {
		params.Text = view.Text
		err = t.sender.EditMessageText(ctx, params)
	}
	if err != nil {
		return fmt.Errorf("edit message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

// ErrNoRef is returned when an edit targets a message that was never rendered.
var ErrNoRef = errors.New("message was never rendered")

// Noop discards every render. Refs it returns are zero.
type Noop struct{}

func (Noop) RenderToModerators(context.Context, View) (store.MessageRef, error) {
	return store.MessageRef{}, nil
}

func (Noop) RenderToAdmins(context.Context, View) (store.MessageRef, error) {
	return store.MessageRef{}, nil
}

func (Noop) EditModeratorView(context.Context, store.MessageRef, View) error { return nil }
func (Noop) EditAdminView(context.Context, store.MessageRef, View) error     { return nil }

func (Noop) SendToModerators(context.Context, View) (store.MessageRef, error) {
	return store.MessageRef{}, nil
}

func (Noop) SendToAdmins(context.Context, View) (store.MessageRef, error) {
	return store.MessageRef{}, nil
}

func (Noop) NotifyUser(context.Context, int64, View) error { return nil }

func (Noop) PublishToChannel(context.Context, View) (store.MessageRef, error) {
	return store.MessageRef{}, nil
}

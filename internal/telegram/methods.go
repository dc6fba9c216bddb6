package telegram

import (
	"context"
	"errors"
	"time"
)

// ParseModeHTML is the only parse mode moderbot sends.
const ParseModeHTML = "HTML"

// SendMessageParams are the sendMessage arguments moderbot uses.
type SendMessageParams struct {
	ChatID                int64                 `json:"chat_id"`
	MessageThreadID       int64                 `json:"message_thread_id,omitempty"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendPhotoParams are the sendPhoto arguments moderbot uses. Photo is a file id.
type SendPhotoParams struct {
	ChatID          int64                 `json:"chat_id"`
	MessageThreadID int64                 `json:"message_thread_id,omitempty"`
	Photo           string                `json:"photo"`
	Caption         string                `json:"caption,omitempty"`
	ParseMode       string                `json:"parse_mode,omitempty"`
	ReplyMarkup     *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageParams edit either the text or the caption of a message,
// depending on which method is called.
type EditMessageParams struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text,omitempty"`
	Caption     string                `json:"caption,omitempty"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type answerCallbackParams struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

type getChatMemberParams struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetMe returns the bot's own account; used as a connectivity check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", 0, 0, struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := getUpdatesParams{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", 0, timeout, params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", params.ChatID, 0, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhoto sends a photo by file id.
func (c *Client) SendPhoto(ctx context.Context, params SendPhotoParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendPhoto", params.ChatID, 0, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces a text message. An unchanged edit is not an error.
func (c *Client) EditMessageText(ctx context.Context, params EditMessageParams) error {
	params.Caption = ""
	return ignoreNotModified(c.call(ctx, "editMessageText", params.ChatID, 0, params, nil))
}

// EditMessageCaption replaces a media caption. An unchanged edit is not an error.
func (c *Client) EditMessageCaption(ctx context.Context, params EditMessageParams) error {
	params.Text = ""
	return ignoreNotModified(c.call(ctx, "editMessageCaption", params.ChatID, 0, params, nil))
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string, showAlert bool) error {
	return c.call(ctx, "answerCallbackQuery", 0, 0, answerCallbackParams{CallbackQueryID: id, Text: text, ShowAlert: showAlert}, nil)
}

// GetChatMember returns userID's membership in chatID.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	var member ChatMember
	if err := c.call(ctx, "getChatMember", 0, 0, getChatMemberParams{ChatID: chatID, UserID: userID}, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func ignoreNotModified(err error) error {
	if errors.Is(err, ErrNotModified) {
		return nil
	}
	return err
}

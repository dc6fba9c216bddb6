package bot

import (
	"context"
	"strings"

	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/telegram"
)

// ChatKind is where an update came from.
type ChatKind int

const (
	ChatIgnored ChatKind = iota
	ChatPrivate
	ChatModerators
	ChatAdmins
)

func (k ChatKind) String() string {
	switch k {
	case ChatPrivate:
		return "private"
	case ChatModerators:
		return "moderators"
	case ChatAdmins:
		return "admins"
	default:
		return "ignored"
	}
}

// ChatContext locates an update.
type ChatContext struct {
	Kind     ChatKind
	ChatID   int64
	ThreadID int64
}

// Incoming is an update the router understands.
type Incoming interface {
	ChatContext() ChatContext
	From() store.Actor
	Reply(ctx context.Context, view notifier.View) error
	incoming()
}

// IncomingMessage is a text or photo message.
type IncomingMessage struct {
	Message *telegram.Message
	chat    ChatContext
	out     notifier.Service
}

// IncomingCallback is an inline button press.
type IncomingCallback struct {
	Query  *telegram.CallbackQuery
	chat   ChatContext
	out    notifier.Service
	answer CallbackAnswerer
}

func (m *IncomingMessage) ChatContext() ChatContext { return m.chat }
func (c *IncomingCallback) ChatContext() ChatContext { return c.chat }

func (m *IncomingMessage) From() store.Actor {
	if m.Message.From == nil {
		return store.Actor{}
	}
	return actorOf(*m.Message.From)
}

func (c *IncomingCallback) From() store.Actor { return actorOf(c.Query.From) }

func (m *IncomingMessage) Reply(ctx context.Context, view notifier.View) error {
	return reply(ctx, m.out, m.chat, m.From().ID, view)
}

func (c *IncomingCallback) Reply(ctx context.Context, view notifier.View) error {
	return reply(ctx, c.out, c.chat, c.From().ID, view)
}

func (*IncomingMessage) incoming()  {}
func (*IncomingCallback) incoming() {}

// Text is the message text or photo caption.
func (m *IncomingMessage) Text() string {
	return strings.TrimSpace(m.Message.Content())
}

// Answer acknowledges the button press with a toast, or an alert when alert is set.
func (c *IncomingCallback) Answer(ctx context.Context, text string, alert bool) error {
	if c.answer == nil {
		return nil
	}
	return c.answer.AnswerCallbackQuery(ctx, c.Query.ID, text, alert)
}

func reply(ctx context.Context, out notifier.Service, chat ChatContext, userID int64, view notifier.View) error {
	switch chat.Kind {
	case ChatPrivate:
		return out.NotifyUser(ctx, userID, view)
	case ChatModerators:
		_, err := out.SendToModerators(ctx, view)
		return err
	case ChatAdmins:
		_, err := out.SendToAdmins(ctx, view)
		return err
	default:
		return nil
	}
}

func actorOf(u telegram.User) store.Actor {
	return store.Actor{ID: u.ID, Username: u.Username}
}

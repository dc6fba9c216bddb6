// Package bot turns Telegram updates into submission, moderation, and admin
// operations.
//
// Every update becomes one of two Incoming variants. IncomingMessage wraps a
// chat message and IncomingCallback wraps an inline-button press; both expose
// the chat they came from and a Reply that answers in that same chat. Updates
// from chats other than private chats and the configured moderators/admins
// topics are dropped before routing.
//
// Poller drives the Bot API long-poll loop and tags each update with a
// correlation id for logging.
package bot

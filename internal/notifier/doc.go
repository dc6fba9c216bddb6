// Package notifier renders moderbot views onto Telegram chats.
//
// The Telegram implementation sends to the moderators and admins topics
// configured in config.toml, falls back to the bare chat when a topic send
// fails, and edits captions instead of text when a view carries a photo. A
// noop implementation is returned when no Bot API sender is available so the
// moderation core and admin tooling can run in dry mode and in tests.
//
// Callers depend only on the Service interface.
package notifier

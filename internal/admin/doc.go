// Package admin implements the operator surface: bans, blacklist keywords,
// required subscriptions, broadcasts, and read-only reporting.
//
// Every mutation writes an action log entry. Notifications to affected users
// are best-effort; a blocked bot never fails the underlying operation. The
// same Service backs the chat commands, the daemon HTTP API, and the CLI's
// direct-store fallback.
package admin

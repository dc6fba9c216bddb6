// Command moderbot is the operator CLI for the moderation bot.
//
// Admin commands talk to a running daemon over its HTTP API and fall back
// to opening the database directly when no daemon answers, so the same
// commands work on a stopped installation. "moderbot run" starts the bot in
// the foreground; start/stop/restart manage a detached daemon.
package main

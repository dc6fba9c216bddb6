// Package daemon coordinates the long-running moderbot process.
//
// It wires configuration, the SQLite store, the bot's long-poll loop, the
// moderation core, and the HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. Two pollers against one bot token
// would steal each other's updates, so the lock is taken before anything
// talks to the Bot API.
//
// Keep orchestration logic here: moderation rules live in their respective
// packages while the daemon focuses on startup, shutdown, and status.
package daemon

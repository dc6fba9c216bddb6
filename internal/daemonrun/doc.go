// Package daemonrun is the daemon's composition root: it builds the logger,
// store, Bot API client, and moderation components from configuration and
// runs the daemon until a termination signal.
package daemonrun

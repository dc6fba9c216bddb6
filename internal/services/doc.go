// Package services defines shared utilities consumed by the bot handlers, the
// moderation core, and the HTTP API.
//
// It provides context helpers that stamp post ids, user ids, and correlation
// identifiers for logging, plus error markers and the Wrap helper that sort
// failures into policy rejections, race losses, delivery failures, and
// notification failures.
package services

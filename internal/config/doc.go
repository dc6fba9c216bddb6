// Package config loads, normalizes, and validates moderbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BOT_TOKEN and ADMINS. The Config type centralizes every knob the daemon and
// CLI need: Bot API credentials, chat routing, admin identities, submission
// limits, and storage locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

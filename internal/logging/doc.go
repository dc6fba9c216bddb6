// Package logging assembles structured slog loggers and formatting helpers used
// across moderbot services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so handlers can tag log lines with
// post ids, user ids, and correlation ids. A no-op logger is provided for tests.
package logging

// Package api defines wire-format types and converters for the daemon HTTP
// API and the CLI. It translates store models into transport-friendly DTOs so
// clients render posts, bans, and statistics without importing internal types.
//
// # Key Types
//
// Post: a submission with its moderation state flattened into status,
// moderator, decidedAt and rejectReason.
//
// DaemonStatus: running state, paths, pending post count and open rejections.
//
// Service: admin operations returning DTOs, shared by the HTTP handlers and
// the CLI's direct-store fallback.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Post states are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. Log entry data is passed through as
// json.RawMessage to avoid double-encoding.
package api

// Package store persists posts, users, bans, blacklist keywords, required
// subscriptions, and the action log in SQLite.
//
// Post decisions are written with a compare-and-swap on the status column, so
// two moderators racing on the same post cannot both commit a decision. All
// timestamps are stored in UTC using a fixed-width layout so range queries can
// compare them as text.
package store

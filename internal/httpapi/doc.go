// Package httpapi serves the daemon's JSON API.
//
// The router exposes daemon status, post listings, statistics, the action
// log, and the admin mutations (bans, blacklist, required subscriptions,
// broadcast). Moderation decisions are not reachable over HTTP; they happen
// only through the moderator chat. When an API token is configured every
// request must carry it as a bearer token.
package httpapi

// Package moderation owns the post decision state machine.
//
// A post starts pending and ends published or rejected exactly once. Core
// serializes every decision path for a post behind a per-post lock and commits
// through the store's conditional status update, so concurrent moderators and
// the reject-reason watchdog cannot both win. Publishing delivers to the
// channel before committing; a failed delivery leaves the post pending.
//
// Rejection is a two-step interaction. RequestReject arms a PendingRejection
// with a deadline and a one-shot timer; SupplyReason, CancelReject, or the
// timer resolve it, and whichever removes the record first wins. All renders
// and notifications are best effort and only logged on failure.
package moderation

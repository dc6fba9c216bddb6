// Package subscriptions manages the channels and bots a user must follow
// before submitting.
//
// Registry keeps the requirement list in the store and mirrors it in memory;
// every write goes through Registry and refreshes the mirror before returning,
// so readers in the same process always see the latest committed list.
// Checker verifies channel membership through the Bot API. Bot entries
// cannot be verified and are only shown to the user.
package subscriptions

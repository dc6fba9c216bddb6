// Package telegram is a small Bot API client covering the calls moderbot
// makes: long polling, sending and editing messages, answering callback
// queries, and checking channel membership.
//
// Outgoing sends pass through a global limiter and a per-chat limiter so
// broadcasts and review renders stay under the Bot API flood limits. A 429
// response is retried once after the server's retry_after hint.
package telegram

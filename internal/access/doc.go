// Package access gives the CLI one admin surface regardless of whether the
// daemon is running.
//
// When the daemon's HTTP API answers, operations go through it so the
// daemon's in-memory subscription cache observes every write. Otherwise the
// CLI opens the database directly and runs the same admin service in-process.
package access

// Package textutil provides text processing helpers shared by the submission
// filter, the admin surface, and message rendering.
//
// The primary use cases are:
//   - Folding text for case-insensitive keyword storage and matching
//   - Suggesting the closest known keyword for a mistyped one
//   - Rune-safe previews and HTML escaping for Bot API messages
package textutil

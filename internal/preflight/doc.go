// Package preflight provides readiness checks for the filesystem paths and
// external services moderbot depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll during Start. A failed check aborts startup so a
//     misconfigured token or unwritable data directory is reported at once
//     rather than on the first submission.
//   - The CLI "moderbot status" command renders the same results as a table.
package preflight

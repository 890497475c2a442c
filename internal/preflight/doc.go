// Package preflight provides readiness checks for the external tools,
// directories and APIs dubsy depends on.
//
// The CLI "dubsy check" command runs RunAll and renders the results; the
// individual checks are exported for callers that need a single answer.
package preflight

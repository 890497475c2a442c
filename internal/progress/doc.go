// Package progress fans out job lifecycle events (started, completed,
// failed) to listeners keyed by job identifier.
package progress

// Package daemonrun owns the long-running server process: signal handling,
// the single-instance lock, logger setup and pipeline wiring.
package daemonrun

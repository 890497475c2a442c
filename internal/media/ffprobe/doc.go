// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Prober runs the binary through an injectable Runner so callers can test
// stream detection without ffprobe installed. Helper methods on Result give
// stream counts and the container duration.
package ffprobe

// Package server is the HTTP transport: uploads that run the pipeline, a
// WebSocket progress channel per job, artifact downloads and a health probe.
package server

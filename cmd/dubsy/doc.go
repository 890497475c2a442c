// Command dubsy runs the subtitle translation service and its local tooling:
// the HTTP server, one-off pipeline runs, dependency checks and config
// management.
package main

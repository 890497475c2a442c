// Package whisperapi calls the remote OpenAI speech-to-text endpoint with a
// verbose_json response so that segment timings are returned.
package whisperapi

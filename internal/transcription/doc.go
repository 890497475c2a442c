// Package transcription selects a speech-to-text backend (the remote Whisper
// API or a local WhisperX) and enforces the shared contract: a readable audio
// file in, at least one timed segment out, and ErrTranscription on any
// failure.
package transcription

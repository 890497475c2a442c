// Package whisperx runs a local WhisperX transcription through uvx and
// converts its JSON output into transcript segments.
//
// Model, device and VAD selection come from Config. The command runner is
// injectable so tests never need uvx or a GPU.
package whisperx

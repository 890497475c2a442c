// Package audio extracts the speech track from uploaded videos.
//
// Extractor confirms an audio stream exists with ffprobe, then asks ffmpeg
// for a mono 16 kHz PCM WAV under a random name so concurrent jobs never share
// a path. Failures are tagged services.ErrAudioExtraction.
package audio

// Package compose produces subtitled videos by shelling out to ffmpeg.
//
// Burn mode renders subtitles into the frame (re-encoding video, copying
// audio) and writes an .mp4. Soft mode muxes the SRT as a separate track into
// an .mkv without re-encoding. Both run under a bounded timeout and check that
// the output file exists and is non-empty.
package compose

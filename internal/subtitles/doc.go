// Package subtitles writes and reads SubRip (.srt) files.
//
// Cue timestamps are derived by integer decomposition of float offsets
// (floor for hours, minutes and seconds; rounded milliseconds). Cues are
// numbered from 1 in the order given; the writer never sorts.
package subtitles

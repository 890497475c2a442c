// Package pipeline sequences one subtitle-translation job: audio extraction,
// transcription, translation, subtitle writing and (optionally) video
// composition.
//
// Stages never overlap. Any stage failure aborts the rest and is returned
// with the stage name attached. The intermediate audio file is deleted on
// every exit path; the subtitle and output video are returned to the caller.
// When a Publisher is wired, "started" and "completed" events are emitted;
// "failed" is left to the caller.
package pipeline

// Package transcript holds the timed-text types passed between pipeline
// stages.
package transcript

import (
	"fmt"
	"strings"
)

// Segment is a timed unit of spoken text. Offsets are seconds from the start
// of the media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Validate checks 0 <= start < end.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("segment start %.3f is negative", s.Start)
	}
	if s.End <= s.Start {
		return fmt.Errorf("segment end %.3f must be after start %.3f", s.End, s.Start)
	}
	return nil
}

// Transcript is the ordered segment sequence produced from one audio input
// plus provider metadata.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// JoinedText returns the segment texts joined by single spaces.
func JoinedText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy of segments that shares no backing array.
func Clone(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

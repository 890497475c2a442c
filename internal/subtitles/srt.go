package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dubsy/internal/transcript"
)

// Timestamp is an SRT cue time broken into its display fields.
type Timestamp struct {
	Hours        int
	Minutes      int
	Seconds      int
	Milliseconds int
}

// String renders HH:MM:SS,mmm.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ts.Hours, ts.Minutes, ts.Seconds, ts.Milliseconds)
}

// Decompose converts offset seconds into SRT fields: whole hours, minutes and
// seconds are floored and the fraction is rounded to milliseconds. A fraction
// that rounds up to 1000 ms carries into the seconds field. Negative offsets
// clamp to zero.
func Decompose(total float64) Timestamp {
	if total < 0 || math.IsNaN(total) {
		total = 0
	}
	whole := math.Floor(total)
	millis := int(math.Round((total - whole) * 1000))
	secs := int64(whole)
	if millis >= 1000 {
		secs++
		millis -= 1000
	}
	return Timestamp{
		Hours:        int(secs / 3600),
		Minutes:      int((secs % 3600) / 60),
		Seconds:      int(secs % 60),
		Milliseconds: millis,
	}
}

// FormatTimestamp renders offset seconds as an SRT timestamp.
func FormatTimestamp(total float64) string {
	return Decompose(total).String()
}

// ParseTimestamp parses HH:MM:SS,mmm (a period separator is also accepted).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Encode serializes segments as SRT cues numbered from 1 in input order.
func Encode(segments []transcript.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(seg.Start),
			FormatTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
		)
	}
	return b.String()
}

// Cue is one parsed SRT entry.
type Cue struct {
	Index int
	transcript.Segment
}

// Parse reads SRT content back into cues. Blocks without a valid timing line
// are skipped.
func Parse(content string) []Cue {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")
	cues := make([]Cue, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start, errStart := ParseTimestamp(parts[0])
		end, errEnd := ParseTimestamp(parts[1])
		if errStart != nil || errEnd != nil {
			continue
		}
		cues = append(cues, Cue{
			Index:   index,
			Segment: transcript.Segment{Start: start, End: end, Text: strings.Join(lines[2:], "\n")},
		})
	}
	return cues
}

// Package transcript turns ordered ASR segments into display lines and the
// formatted transcript text that the analysis stages consume.
package transcript

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidSegment is returned for segments the recognizer should never produce.
var ErrInvalidSegment = errors.New("invalid segment")

// Segment is one recognized span: its start offset into the audio and the text spoken.
type Segment struct {
	StartSeconds float64 `json:"startSeconds"`
	Text         string  `json:"text"`
}

// Validate rejects a negative or non-finite start and a missing text.
func (s Segment) Validate() error {
	if math.IsNaN(s.StartSeconds) || math.IsInf(s.StartSeconds, 0) {
		return fmt.Errorf("%w: start %v is not a finite offset", ErrInvalidSegment, s.StartSeconds)
	}
	if s.StartSeconds < 0 {
		return fmt.Errorf("%w: negative start %v", ErrInvalidSegment, s.StartSeconds)
	}
	if s.Text == "" {
		return fmt.Errorf("%w: missing text", ErrInvalidSegment)
	}
	return nil
}

// Validate checks every segment, reporting the index of the first bad one.
func Validate(segments []Segment) error {
	for i, s := range segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// Line is the display form of a segment: "(M:SS)" and the trimmed text.
type Line struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Lines derives one display line per segment, preserving order.
// Both the assembled transcript and the report rows are built from it.
func Lines(segments []Segment) ([]Line, error) {
	lines := make([]Line, 0, len(segments))
	for i, s := range segments {
		ts, err := FormatOffset(s.StartSeconds)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		lines = append(lines, Line{
			Timestamp: ts,
			Text:      strings.TrimSpace(s.Text),
		})
	}
	return lines, nil
}

package transcript

import (
	"errors"
	"fmt"
	"math"
)

// ErrNegativeOffset is returned when asked to format an offset before the start of the audio.
var ErrNegativeOffset = errors.New("negative offset")

// FormatTimestamp renders a millisecond offset as "(M:SS)".
// Minutes are not padded and never roll over into hours.
func FormatTimestamp(ms int64) (string, error) {
	if ms < 0 {
		return "", fmt.Errorf("%w: %dms", ErrNegativeOffset, ms)
	}
	seconds := ms / 1000
	return fmt.Sprintf("(%d:%02d)", seconds/60, seconds%60), nil
}

// FormatOffset formats a start offset given in seconds.
func FormatOffset(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidSegment, seconds)
	}
	if seconds < 0 {
		return "", fmt.Errorf("%w: %vs", ErrNegativeOffset, seconds)
	}
	return FormatTimestamp(OffsetMillis(seconds))
}

// OffsetMillis converts seconds to whole milliseconds, rounding down.
func OffsetMillis(seconds float64) int64 {
	return int64(math.Floor(seconds * 1000))
}

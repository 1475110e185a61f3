package transcript

import "strings"

// Assemble joins the segments into the formatted transcript:
// "{timestamp} {text}" per segment, separated by a blank line.
//
// The timestamps stay in the text. Word statistics and sentiment are computed
// over this exact string, so timestamp tokens count as words.
func Assemble(segments []Segment) (string, error) {
	lines, err := Lines(segments)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Timestamp + " " + l.Text
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

// Package sentiment labels a transcript by counting fixed positive and
// negative keywords.
package sentiment

import (
	"fmt"
	"strings"
)

// Sentiment is the coarse three-way label of a transcript.
type Sentiment int

const (
	Neutral Sentiment = iota
	Positive
	Negative
)

var (
	positiveWords = map[string]struct{}{
		"bom": {}, "ótimo": {}, "excelente": {}, "satisfeito": {}, "maravilhoso": {},
	}
	negativeWords = map[string]struct{}{
		"ruim": {}, "péssimo": {}, "horrível": {}, "insatisfeito": {}, "terrível": {},
	}
)

// String returns the machine-readable code used in events and JSON.
func (s Sentiment) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Neutral:
		return "neutral"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Label returns the display label shown to operators.
func (s Sentiment) Label() string {
	switch s {
	case Positive:
		return "Satisfeito"
	case Negative:
		return "Insatisfeito"
	default:
		return "Neutro"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Scores holds the keyword hit counts behind a classification.
type Scores struct {
	Positive int
	Negative int
}

// Score counts whitespace tokens of the lowercased text that exactly match a keyword.
func Score(text string) Scores {
	var sc Scores
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if _, ok := positiveWords[tok]; ok {
			sc.Positive++
		}
		if _, ok := negativeWords[tok]; ok {
			sc.Negative++
		}
	}
	return sc
}

// Sentiment applies the majority rule. Ties, including no hits, are Neutral.
func (sc Scores) Sentiment() Sentiment {
	switch {
	case sc.Positive > sc.Negative:
		return Positive
	case sc.Negative > sc.Positive:
		return Negative
	default:
		return Neutral
	}
}

// Classify scores text and returns its label.
func Classify(text string) Sentiment {
	return Score(text).Sentiment()
}

// Package lexical computes word statistics over a transcript: token count,
// speaking rate, a frequency ranking and the share of courtesy ("magic") words.
package lexical

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrNonPositiveDuration is returned when a rate is requested over no audio.
var ErrNonPositiveDuration = errors.New("cannot compute rate for non-positive duration")

// MagicWords are the courtesy phrases tracked by MagicWordPercentage.
// Tokens are single words, so the multi-word phrases never match.
var MagicWords = []string{
	"obrigado", "obrigada", "por favor", "desculpa", "desculpe", "por gentileza",
	"bom dia", "boa tarde", "boa noite", "agradeço", "agradece", "gratidão",
	"sinto muito", "perdão", "me perdoe", "com licença",
}

// WordCount is one entry of the frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Statistics is the result of Compute. It is not modified after construction.
type Statistics struct {
	TotalWords          int         `json:"totalWords"`
	WordsPerMinute      float64     `json:"wordsPerMinute"`
	WordFrequency       []WordCount `json:"wordFrequency"`
	MagicWordPercentage float64     `json:"magicWordPercentage"`
}

// Count returns how often word occurs, or 0.
func (s Statistics) Count(word string) int {
	for _, wc := range s.WordFrequency {
		if wc.Word == word {
			return wc.Count
		}
	}
	return 0
}

// Tokenize lowercases text and splits it on whitespace. Punctuation stays
// attached, so "obrigado." and "obrigado" are different tokens.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Compute derives Statistics from text spoken over durationMinutes.
//
// An empty text yields zero statistics. Otherwise durationMinutes must be
// positive and finite.
func Compute(text string, durationMinutes float64) (Statistics, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		if durationMinutes < 0 || math.IsNaN(durationMinutes) {
			return Statistics{}, fmt.Errorf("%w: %v minutes", ErrNonPositiveDuration, durationMinutes)
		}
		return Statistics{WordFrequency: []WordCount{}}, nil
	}
	if !(durationMinutes > 0) || math.IsInf(durationMinutes, 1) {
		return Statistics{}, fmt.Errorf("%w: %v minutes", ErrNonPositiveDuration, durationMinutes)
	}

	freq := Frequencies(tokens)

	counts := make(map[string]int, len(freq))
	for _, wc := range freq {
		counts[wc.Word] = wc.Count
	}
	magic := 0
	for _, w := range MagicWords {
		magic += counts[w]
	}

	total := len(tokens)
	return Statistics{
		TotalWords:          total,
		WordsPerMinute:      float64(total) / durationMinutes,
		WordFrequency:       freq,
		MagicWordPercentage: float64(magic) / float64(total) * 100,
	}, nil
}

// Frequencies counts tokens and ranks them by descending count.
// Ties keep the order in which the words first appeared.
func Frequencies(tokens []string) []WordCount {
	index := make(map[string]int, len(tokens))
	freq := make([]WordCount, 0, len(tokens))
	for _, tok := range tokens {
		if i, ok := index[tok]; ok {
			freq[i].Count++
			continue
		}
		index[tok] = len(freq)
		freq = append(freq, WordCount{Word: tok, Count: 1})
	}
	sort.SliceStable(freq, func(i, j int) bool {
		return freq[i].Count > freq[j].Count
	})
	return freq
}

// Package stt defines the interface for Speech-to-Text recognizers.
package stt

import (
	"context"
	"errors"

	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/transcript"
)

// ErrNoAudio is returned when a recognizer is handed an empty waveform.
var ErrNoAudio = errors.New("no audio to transcribe")

// ErrAudioTooLarge is returned when a recognizer cannot accept audio of this
// size in any form.
var ErrAudioTooLarge = errors.New("audio too large to transcribe")

// Recognizer turns a waveform into ordered, timed text segments
// (Google, Whisper, mock, etc.). Implementations are shared across requests
// and must be safe for concurrent use.
type Recognizer interface {
	// Transcribe returns the segments in chronological order.
	Transcribe(ctx context.Context, wav audio.Waveform) ([]transcript.Segment, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

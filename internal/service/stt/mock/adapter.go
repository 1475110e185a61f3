// Package mock provides a canned STT recognizer for running and testing the
// service without cloud credentials.
package mock

import (
	"context"
	"sync"

	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/transcript"
)

// DefaultSegments is a short customer service call used when no script is given.
var DefaultSegments = []transcript.Segment{
	{StartSeconds: 0, Text: " Bom dia, obrigado por ligar. Em que posso ajudar?"},
	{StartSeconds: 4.5, Text: " Bom dia. Minha fatura veio com um valor errado e eu queria entender."},
	{StartSeconds: 11.2, Text: " Claro, por favor me informe o número do contrato."},
	{StartSeconds: 17.8, Text: " É 4 5 2 1. Então, o atendimento foi ótimo, obrigado."},
	{StartSeconds: 25.0, Text: " Eu que agradeço, tenha um bom dia."},
}

// Adapter implements stt.Recognizer by returning a fixed script.
type Adapter struct {
	mu       sync.Mutex
	segments []transcript.Segment
	err      error
	calls    []string
}

// New creates a mock recognizer that returns DefaultSegments.
func New() *Adapter {
	return NewWithSegments(DefaultSegments)
}

// NewWithSegments creates a mock recognizer that returns segments for every call.
func NewWithSegments(segments []transcript.Segment) *Adapter {
	return &Adapter{segments: append([]transcript.Segment(nil), segments...)}
}

// NewFailing creates a mock recognizer whose calls fail with err.
func NewFailing(err error) *Adapter {
	return &Adapter{err: err}
}

// Name implements stt.Recognizer.
func (a *Adapter) Name() string {
	return "mock"
}

// Transcribe implements stt.Recognizer. Each call gets its own copy of the script.
func (a *Adapter) Transcribe(ctx context.Context, wav audio.Waveform) ([]transcript.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, wav.Path)

	if a.err != nil {
		return nil, a.err
	}
	return append([]transcript.Segment(nil), a.segments...), nil
}

// Calls returns the waveform paths passed to Transcribe so far.
func (a *Adapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

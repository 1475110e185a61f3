package mock

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/transcript"
)

var _ stt.Recognizer = (*Adapter)(nil)

func TestAdapter_DefaultScript(t *testing.T) {
	adapter := New()

	segments, err := adapter.Transcribe(context.Background(), audio.Waveform{Path: "call.wav"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(segments, DefaultSegments) {
		t.Errorf("expected default segments, got %v", segments)
	}
	if err := transcript.Validate(segments); err != nil {
		t.Errorf("default script must be valid: %v", err)
	}
	if adapter.Name() != "mock" {
		t.Errorf("expected name 'mock', got %s", adapter.Name())
	}
}

func TestAdapter_ReturnsCopies(t *testing.T) {
	adapter := NewWithSegments([]transcript.Segment{{StartSeconds: 1, Text: "olá"}})

	first, _ := adapter.Transcribe(context.Background(), audio.Waveform{})
	first[0].Text = "mutated"

	second, _ := adapter.Transcribe(context.Background(), audio.Waveform{})
	if second[0].Text != "olá" {
		t.Errorf("expected script to be unaffected by caller mutation, got %q", second[0].Text)
	}
}

func TestAdapter_Failing(t *testing.T) {
	boom := errors.New("model not loaded")
	adapter := NewFailing(boom)

	_, err := adapter.Transcribe(context.Background(), audio.Waveform{})
	if !errors.Is(err, boom) {
		t.Errorf("expected configured error, got %v", err)
	}
}

func TestAdapter_CanceledContext(t *testing.T) {
	adapter := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.Transcribe(ctx, audio.Waveform{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(adapter.Calls()) != 0 {
		t.Error("expected canceled call to not be recorded")
	}
}

func TestAdapter_ConcurrentCalls(t *testing.T) {
	adapter := New()
	numGoroutines := 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := adapter.Transcribe(context.Background(), audio.Waveform{Path: "x.wav"}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(adapter.Calls()); got != numGoroutines {
		t.Errorf("expected %d calls, got %d", numGoroutines, got)
	}
}

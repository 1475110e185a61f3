package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"speech-analytics-service/internal/models"
	"speech-analytics-service/internal/observability/metrics"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerCompleted != nil {
				t.Error("expected nil completed writer when disabled")
			}
			if p.writerFailed != nil {
				t.Error("expected nil failed writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
		Principal:      "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicCompleted != "test.completed" {
		t.Errorf("expected topic completed 'test.completed', got %s", p.topicCompleted)
	}
	if p.topicFailed != "test.failed" {
		t.Errorf("expected topic failed 'test.failed', got %s", p.topicFailed)
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
	})
	defer p.Close()

	if !p.enabled {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerCompleted == nil || p.writerCompleted.Topic != "test.completed" {
		t.Error("expected completed writer bound to its topic")
	}
	if p.writerFailed == nil || p.writerFailed.Topic != "test.failed" {
		t.Error("expected failed writer bound to its topic")
	}
}

func TestPublisher_PublishCompleted_Disabled(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	p := New(&Config{Enabled: false, TopicCompleted: "test.completed", Metrics: m})

	ev := models.AnalysisCompleted{
		EventType:     models.EventAnalysisCompleted,
		InteractionID: "int-123",
		Sentiment:     "neutral",
	}
	if err := p.PublishCompleted(context.Background(), "int-123", ev); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("test.completed", "completed")); got != 1 {
		t.Errorf("expected publish to be recorded, got %v", got)
	}
}

func TestPublisher_PublishFailed_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	ev := models.AnalysisFailed{
		EventType:     models.EventAnalysisFailed,
		InteractionID: "int-123",
		Stage:         "decode",
		Error:         "ffmpeg: exit status 1",
	}
	if err := p.PublishFailed(context.Background(), "int-123", ev); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Create an unmarshalable value (channel)
	event := make(chan int)

	if err := p.PublishCompleted(context.Background(), "test-key", event); err == nil {
		t.Error("expected error for unmarshalable completed event")
	}
	if err := p.PublishFailed(context.Background(), "test-key", event); err == nil {
		t.Error("expected error for unmarshalable failed event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}

package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"speech-analytics-service/internal/models"
	"speech-analytics-service/internal/observability/logging"
)

// Message is what browsers receive: the topic and the decoded event.
type Message struct {
	Topic string `json:"topic"`
	Event any    `json:"event"`
}

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewReader reads topic from partition 0 without a consumer group, starting
// at messages from the last lookback period.
func NewReader(ctx context.Context, brokers []string, topic string, lookback time.Duration) *kafka.Reader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if lookback > 0 {
		if err := r.SetOffsetAt(ctx, time.Now().Add(-lookback)); err != nil {
			warnLogger := logging.WithComponent("viewer")
			warnLogger.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
		}
	}
	return r
}

// Decode parses an analysis event by its eventType.
func Decode(value []byte) (any, error) {
	var head struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, err
	}
	switch head.EventType {
	case models.EventAnalysisCompleted:
		var ev models.AnalysisCompleted
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case models.EventAnalysisFailed:
		var ev models.AnalysisFailed
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.EventType)
	}
}

// Consume forwards decoded events from r to hub until ctx ends. Read errors
// are retried after retryDelay; undecodable messages are skipped.
func Consume(ctx context.Context, r MessageReader, topic string, hub *Hub, retryDelay time.Duration) {
	logger := logging.WithComponent("viewer").With().Str("topic", topic).Logger()
	logger.Info().Msg("Consuming analysis events")

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping undecodable message")
			continue
		}
		logger.Debug().Str("key", string(msg.Key)).Msg("Received event")
		if err := hub.Broadcast(ctx, Message{Topic: topic, Event: ev}); err != nil {
			return
		}
	}
}

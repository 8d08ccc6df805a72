// Package publish sends detected events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"halo-cme-lab/internal/domain"
)

// SchemaVersion identifies the event message layout.
const SchemaVersion = "v1"

var (
	errNoTopic   = errors.New("kafka topic must not be empty")
	errNoBrokers = errors.New("at least one kafka broker is required")
	errNilWriter = errors.New("publisher requires a writer")
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventMessage is the JSON value of one published event.
type EventMessage struct {
	SchemaVersion   string    `json:"schema_version"`
	RunID           string    `json:"run_id"`
	EventID         string    `json:"event_id"`
	WindowID        string    `json:"window_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	AvgScore        float64   `json:"avg_score"`
	PeakScore       float64   `json:"peak_score"`
	DurationMinutes float64   `json:"duration_minutes"`
	Confidence      float64   `json:"confidence"`
	Strength        string    `json:"strength"`
	Type            string    `json:"type"`
	Validation      string    `json:"validation"`
	PeakCount       int       `json:"peak_count"`
}

// NewEventMessage builds the message for one event of a run.
func NewEventMessage(runID string, e *domain.MergedEvent) EventMessage {
	return EventMessage{
		SchemaVersion:   SchemaVersion,
		RunID:           runID,
		EventID:         e.EventID,
		WindowID:        e.WindowID,
		Start:           e.Start.UTC(),
		End:             e.End.UTC(),
		AvgScore:        e.AvgScore,
		PeakScore:       e.PeakScore,
		DurationMinutes: e.DurationMinutes(),
		Confidence:      e.Confidence,
		Strength:        e.Strength.String(),
		Type:            e.Type.String(),
		Validation:      e.Validation.String(),
		PeakCount:       e.PeakCount,
	}
}

// Publisher writes detected events to a Kafka topic, keyed by event ID.
type Publisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewPublisher creates a publisher backed by a kafka.Writer.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) (*Publisher, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errNoTopic
	}
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, logger)
}

// NewPublisherWithWriter wires the provided writer into a publisher.
func NewPublisherWithWriter(w MessageWriter, logger *zap.Logger) (*Publisher, error) {
	if w == nil {
		return nil, errNilWriter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer: w,
		logger: logger.With(zap.String("component", "publisher")),
	}, nil
}

// Publish sends every event of a run as one batch and returns the number of
// messages written.
func (p *Publisher) Publish(ctx context.Context, runID string, events []*domain.MergedEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(NewEventMessage(runID, e))
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.EventID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "schema_version", Value: []byte(SchemaVersion)},
				{Key: "run_id", Value: []byte(runID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write %d events: %w", len(msgs), err)
	}

	p.logger.Info("events published", zap.String("run_id", runID), zap.Int("count", len(msgs)))
	return len(msgs), nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

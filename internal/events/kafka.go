package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultKafkaTimeout bounds one Publish call.
const DefaultKafkaTimeout = 2 * time.Second

// KafkaPublisher writes one message per event, keyed by session so a
// session's events stay ordered within a partition. Publish runs on the
// request path, so each call gives up after the timeout.
type KafkaPublisher struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher returns a publisher writing to topic on brokers. A
// non-positive timeout means DefaultKafkaTimeout.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultKafkaTimeout
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: timeout,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireOne,
		},
		timeout: timeout,
	}
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultKafkaTimeout
	}
	return &KafkaPublisher{w: w, timeout: timeout}
}

// envelope is the message value.
type envelope struct {
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, sessionID string, evts []state.Event) error {
	if len(evts) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		value, err := json.Marshal(envelope{SessionID: sessionID, Type: e.Type, At: e.At, Data: e.Data})
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(sessionID),
			Value:   value,
			Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.Type)}},
			Time:    e.At,
		})
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/meetpoint/internal/models"
)

// LifecycleEvent is the wire shape published on session transitions so
// downstream consumers can follow sessions without polling the API.
type LifecycleEvent struct {
	Event     string               `json:"event"` // created, joined, computed, completed
	SessionID string               `json:"session_id"`
	Status    models.SessionStatus `json:"status"`
	At        time.Time            `json:"at"`
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w}
}

func (k *KafkaProducer) Publish(ctx context.Context, event string, s *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(LifecycleEvent{Event: event, SessionID: s.ID, Status: s.Status, At: time.Now()})
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(s.ID), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

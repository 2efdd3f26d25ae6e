package broadcast

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes snapshots keyed by zone id so a zone stays on one partition.
type KafkaSink struct {
	w MessageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink { return &KafkaSink{w: w} }

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, zoneID string, payload []byte) error {
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(zoneID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }

package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds the optional event fanout. Entries are keyed by
// borrow id (falling back to the actor) so per-loan ordering survives
// partitioning.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, l *Log) error {
	payload, err := json.Marshal(l.toDTO())
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	key := l.ActorID
	if l.BorrowID.Valid {
		key = strconv.FormatInt(l.BorrowID.Int64, 10)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  l.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(l.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write activity event to kafka: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

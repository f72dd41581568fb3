package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"

	"finlense-server/src/events"

	"github.com/segmentio/kafka-go"
)

// Consumer reads a topic as part of a consumer group. Offsets are committed after
// the handler returns, whatever its result: handlers own their retries.
type Consumer struct {
	brokers []string
	groupID string
}

func NewConsumer(brokers []string, groupID string) *Consumer {
	return &Consumer{brokers: brokers, groupID: groupID}
}

func (c *Consumer) Consume(ctx context.Context, topic string, handle events.Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		GroupID:  c.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch %s message: %w", topic, err)
		}

		if err := handle(ctx, msg.Value); err != nil {
			log.Printf("ERROR: handling %s message at partition %d offset %d: %v", topic, msg.Partition, msg.Offset, err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit %s offset %d: %w", topic, msg.Offset, err)
		}
	}
}

var (
	_ events.Publisher = (*Publisher)(nil)
	_ events.Consumer  = (*Consumer)(nil)
)

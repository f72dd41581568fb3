// Package events carries the fan-out messages between the recurring sweep and the
// workers that materialize occurrences.
package events

import "context"

const TopicRecurringProcess = "transaction.recurring.process"

// RecurringProcess asks a worker to materialize one occurrence of a template.
type RecurringProcess struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
}

type Publisher interface {
	// Publish sends event JSON-encoded. Messages with the same key keep their order.
	Publish(ctx context.Context, topic, key string, event any) error
}

type Handler func(ctx context.Context, payload []byte) error

type Consumer interface {
	// Consume blocks, passing each message on topic to handle, until ctx is done.
	Consume(ctx context.Context, topic string, handle Handler) error
}

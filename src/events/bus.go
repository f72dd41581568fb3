package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
)

var ErrBusClosed = errors.New("event bus closed")

// ChannelBus is an in-process Publisher and Consumer. Consumers of the same topic
// compete for messages, so each message is handled once.
type ChannelBus struct {
	mu      sync.RWMutex
	topics  map[string]chan []byte
	buffer  int
	closed  bool
	drained bool
	done    chan struct{}
	pending sync.WaitGroup
}

func NewChannelBus(buffer int) *ChannelBus {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelBus{topics: make(map[string]chan []byte), buffer: buffer, done: make(chan struct{})}
}

func (b *ChannelBus) topic(name string) chan []byte {
	b.mu.RLock()
	ch, ok := b.topics[name]
	b.mu.RUnlock()
	if ok {
		return ch
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok = b.topics[name]; !ok {
		ch = make(chan []byte, b.buffer)
		if b.drained {
			close(ch)
		}
		b.topics[name] = ch
	}
	return ch
}

// Publish blocks while the topic buffer is full, until ctx ends or the bus is closed.
func (b *ChannelBus) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ch := b.topic(topic)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	b.pending.Add(1)
	b.mu.RUnlock()
	defer b.pending.Done()

	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	select {
	case ch <- data:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBus) Consume(ctx context.Context, topic string, handle Handler) error {
	ch := b.topic(topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handle(ctx, data); err != nil {
				log.Printf("ERROR: handling %s message: %v", topic, err)
			}
		}
	}
}

// Close fails pending publishes with ErrBusClosed and stops all consumers once
// buffered messages are drained.
func (b *ChannelBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	// Topic channels are closed only once no publisher can still send on them.
	b.pending.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.drained = true
	for _, ch := range b.topics {
		close(ch)
	}
}

// Package events provides a typed publish/subscribe bus on top of watermill's
// in-memory gochannel, and a one-shot await primitive for completion
// watchers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Bus delivers values of type T to every active subscriber.
// Values published while nobody is subscribed are dropped.
type Bus[T any] struct {
	topic  string
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus publishing on the given topic.
func NewBus[T any](topic string) *Bus[T] {
	return &Bus[T]{
		topic: topic,
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            64,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: true, // preserves publish order per subscriber
			},
			watermill.NopLogger{},
		),
	}
}

// Publish sends v to all current subscribers.
func (b *Bus[T]) Publish(v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of values published after the call.
// The channel is closed once ctx is done or the bus is closed.
func (b *Bus[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	msgs, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan T, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var v T
			decodeErr := json.Unmarshal(msg.Payload, &v)
			msg.Ack()
			if decodeErr != nil {
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts the bus down and closes every subscription.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryBroker - single-process broker. A subscriber whose buffer is full misses the message;
// publishers never block.
type MemoryBroker struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

func (that *MemoryBroker) Publish(_ context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := Message{Channel: channel, Payload: data}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for sub := range that.subs[channel] {
		select {
		case sub.messages <- message:
		default:
			that.logger.Warn("dropping message for slow subscriber", "method", "Publish", "channel", channel)
		}
	}

	return nil
}

func (that *MemoryBroker) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() error {
		that.mu.Lock()
		defer that.mu.Unlock()

		for _, channel := range channels {
			delete(that.subs[channel], sub)
			if len(that.subs[channel]) == 0 {
				delete(that.subs, channel)
			}
		}

		close(sub.messages)

		return nil
	})

	that.mu.Lock()
	for _, channel := range channels {
		if that.subs[channel] == nil {
			that.subs[channel] = make(map[*Subscription]struct{})
		}
		that.subs[channel][sub] = struct{}{}
	}
	that.mu.Unlock()

	sub.closeOnDone(ctx)

	return sub, nil
}

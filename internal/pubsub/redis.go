package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroker - fan-out through Redis PUBLISH/SUBSCRIBE, shared by every server process.
type RedisBroker struct {
	logger *slog.Logger
	client *redis.Client
}

func NewRedisBroker(logger *slog.Logger, client *redis.Client) *RedisBroker {
	return &RedisBroker{
		logger: logger,
		client: client,
	}
}

func (that *RedisBroker) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err = that.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	return nil
}

func (that *RedisBroker) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	log := that.logger.With("method", "Subscribe")

	pubSub := that.client.Subscribe(ctx, channels...)

	// wait for the subscription confirmation so no message published after return is missed
	if _, err := pubSub.Receive(ctx); err != nil {
		_ = pubSub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := newSubscription(pubSub.Close)
	incoming := pubSub.Channel()

	go func() {
		defer close(sub.messages)

		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-incoming:
				if !ok {
					return
				}

				select {
				case sub.messages <- Message{Channel: msg.Channel, Payload: json.RawMessage(msg.Payload)}:
				case <-sub.done:
					return
				default:
					log.Warn("dropping message for slow subscriber", "channel", msg.Channel)
				}
			}
		}
	}()

	sub.closeOnDone(ctx)

	return sub, nil
}

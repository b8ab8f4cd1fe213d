package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Event names double as channel prefixes: "<EVENT>:<ROOM CODE>".
const (
	RoomUpdated  = "ROOM_UPDATED"
	GameUpdated  = "GAME_UPDATED"
	MessageAdded = "MESSAGE_ADDED"
)

const subscriptionBuffer = 16

type Broker interface {
	// Publish - JSON-encodes payload and delivers it to every subscriber of channel.
	Publish(ctx context.Context, channel string, payload any) error
	// Subscribe - delivers messages from all channels until the context ends or the subscription is closed.
	Subscribe(ctx context.Context, channels ...string) (*Subscription, error)
}

type Message struct {
	Channel string
	Payload json.RawMessage
}

// Event - the part of the channel name before the room code.
func (that Message) Event() string {
	event, _, _ := strings.Cut(that.Channel, ":")
	return event
}

func Channel(event, roomCode string) string {
	return fmt.Sprintf("%s:%s", event, entity.NormalizeRoomCode(roomCode))
}

// RoomChannels - every channel of a room.
func RoomChannels(roomCode string) []string {
	return []string{
		Channel(RoomUpdated, roomCode),
		Channel(GameUpdated, roomCode),
		Channel(MessageAdded, roomCode),
	}
}

type Subscription struct {
	messages chan Message
	done     chan struct{}
	once     sync.Once
	closeFn  func() error
	err      error
}

func newSubscription(closeFn func() error) *Subscription {
	return &Subscription{
		messages: make(chan Message, subscriptionBuffer),
		done:     make(chan struct{}),
		closeFn:  closeFn,
	}
}

// Messages - closed once the subscription ends.
func (that *Subscription) Messages() <-chan Message {
	return that.messages
}

func (that *Subscription) Done() <-chan struct{} {
	return that.done
}

func (that *Subscription) Close() error {
	that.once.Do(func() {
		close(that.done)
		if that.closeFn != nil {
			that.err = that.closeFn()
		}
	})

	return that.err
}

// closeOnDone - ends the subscription with its context.
func (that *Subscription) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			_ = that.Close()
		case <-that.done:
		}
	}()
}

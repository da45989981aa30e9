package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"communityhub/internal/core/domain"
)

// DefaultChatChannel is the pub/sub channel chat messages travel on
const DefaultChatChannel = "communityhub:chat:events"

// relayEvent is one chat message on the wire
type relayEvent struct {
	InstanceID string             `json:"instance_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Message    domain.ChatMessage `json:"message"`
}

// ChatRelay fans chat messages out between instances over Redis pub/sub.
// Each instance stores its own messages; the relay only carries them to
// viewers connected elsewhere.
type ChatRelay struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewChatRelay(client *redis.Client, instanceID, channel string, logger *zap.SugaredLogger) *ChatRelay {
	if channel == "" {
		channel = DefaultChatChannel
	}
	return &ChatRelay{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
	}
}

// Publish sends msg to every other instance
func (r *ChatRelay) Publish(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(relayEvent{
		InstanceID: r.instanceID,
		Timestamp:  time.Now().UTC(),
		Message:    msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat event: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish chat event: %w", err)
	}

	r.logger.Debugw("Relayed chat message", "message_id", msg.ID)
	return nil
}

// Run delivers messages published by other instances to handler until ctx ends
func (r *ChatRelay) Run(ctx context.Context, handler func(domain.ChatMessage)) error {
	r.mu.Lock()
	if r.pubsub != nil {
		r.mu.Unlock()
		return errors.New("chat relay already running")
	}
	pubsub := r.client.Subscribe(ctx, r.channel)
	r.pubsub = pubsub
	r.mu.Unlock()
	defer pubsub.Close()

	// wait for the subscription so nothing published after Run returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var event relayEvent
			if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
				r.logger.Warnw("Failed to unmarshal chat event", "error", err)
				continue
			}
			if event.InstanceID == r.instanceID {
				continue
			}
			handler(event.Message)
		}
	}
}

// Close stops a running subscription
func (r *ChatRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return r.pubsub.Close()
	}
	return nil
}

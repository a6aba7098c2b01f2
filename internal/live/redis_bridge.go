package live

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge relays changes between instances over a Redis pub/sub
// channel so a write on one instance refreshes subscriptions on all.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisBridge builds a bridge for hub and installs it as the hub's relay.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &RedisBridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  logger,
	}
	hub.SetRelay(b)
	return b
}

// Forward implements Relay.
func (b *RedisBridge) Forward(ctx context.Context, changes []Change) error {
	data, err := encodeEnvelope(envelope{Origin: b.origin, Changes: changes})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish changes: %w", err)
	}
	return nil
}

// Run delivers changes published by other instances until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("change relay subscribed", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle([]byte(msg.Payload))
		}
	}
}

func (b *RedisBridge) handle(payload []byte) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		b.logger.Warn("dropping relay message", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Deliver(env.Changes...)
}

package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type redisPubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// RedisBroker fans envelopes out through one redis pub/sub channel.
type RedisBroker struct {
	client  redisPubSub
	channel string
	logg    *logger.Logger
}

func NewRedisBroker(client redisPubSub, channel string, logg *logger.Logger) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		return nil, fmt.Errorf("redis relay channel required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisBroker{client: client, channel: channel, logg: logg}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := encodeWire(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload)
}

func (b *RedisBroker) Run(ctx context.Context, deliver func(Envelope)) error {
	ps, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer ps.Close()

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			env, err := decodeWire([]byte(msg.Payload))
			if err != nil {
				b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "relay.redis.decode_failed")
				continue
			}
			deliver(env)
		}
	}
}

func (b *RedisBroker) Close() error { return nil }

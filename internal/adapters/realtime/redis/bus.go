// Package redis implementa realtime.Bus sobre pub/sub de Redis, para correr
// más de una instancia de la API.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/ports/realtime"

	"github.com/go-redis/redis/v8"
)

type Bus struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

var _ realtime.Bus = (*Bus)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix separa entornos que comparten Redis.
	Prefix string
	Logger logger.Logger
}

func New(ctx context.Context, opts Options) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, opts.Prefix, opts.Logger), nil
}

func NewWithClient(client *redis.Client, prefix string, log logger.Logger) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{client: client, prefix: prefix, log: log.With(map[string]any{"component": "realtime.redis"})}
}

func (b *Bus) Publish(ctx context.Context, evt realtime.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel(evt.Topic), payload).Err()
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan realtime.Event)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt realtime.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Warn("drop malformed event", map[string]any{"channel": msg.Channel, "err": err})
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.client.Close()
}

func (b *Bus) channel(topic string) string {
	return b.prefix + topic
}

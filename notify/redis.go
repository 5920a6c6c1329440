package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel events travel on.
const DefaultChannel = "tess:collections"

// Connect opens a Redis client from a redis:// URL and checks it answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Redis shares events between server instances.
type Redis struct {
	Client  *redis.Client
	Channel string
	// Origin identifies this instance; its own events are not forwarded back.
	Origin string
}

func NewRedis(client *redis.Client, origin string) *Redis {
	return &Redis{Client: client, Channel: DefaultChannel, Origin: origin}
}

func (r *Redis) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Publish(ctx, r.Channel, data).Err()
}

// Forward relays events published by other instances into local until ctx
// is done.
func (r *Redis) Forward(ctx context.Context, local *Local) error {
	sub := r.Client.Subscribe(ctx, r.Channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Channel, err)
	}
	log.Printf("[Notify] Listening on redis channel %s", r.Channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("[Notify] Dropping malformed event: %v", err)
				continue
			}
			if e.Origin == r.Origin {
				continue
			}
			_ = local.Publish(ctx, e)
		}
	}
}

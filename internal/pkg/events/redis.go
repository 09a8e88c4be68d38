package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus publishes events as JSON on a redis channel. The go-redis client is
// shared with other components and is not closed by the bus.
type RedisBus struct {
	log     zerolog.Logger
	rdb     *goredis.Client
	channel string

	mu   sync.Mutex
	subs []*goredis.PubSub
}

// NewRedisBus creates a bus on channel.
func NewRedisBus(log zerolog.Logger, rdb *goredis.Client, channel string) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if channel == "" {
		channel = TypeEntitlementsChanged
	}
	return &RedisBus{
		log:     log.With().Str("service", "RedisEventBus").Logger(),
		rdb:     rdb,
		channel: channel,
	}, nil
}

// Publish sends evt to every subscribed instance.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the channel and calls onEvent for each decoded
// message until ctx is cancelled.
func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(evt Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					b.log.Warn().Err(err).Msg("bad event payload")
					continue
				}
				onEvent(evt)
			}
		}
	}()
	return nil
}

// Close closes all subscriptions.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errList []error
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	b.subs = nil
	return errors.Join(errList...)
}

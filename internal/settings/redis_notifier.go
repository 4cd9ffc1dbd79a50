package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "settings:changes"

// RedisNotifier publishes and subscribes to change events over Redis pub/sub.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
}

func NewRedisNotifier(rdb *goredis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, key string) (Subscription, error) {
	pubsub := n.rdb.Subscribe(ctx, n.channel)
	// Wait for the subscription confirmation so a dead server surfaces here.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan ChangeEvent, 16),
		done:   make(chan struct{}),
	}
	go sub.forward(key)
	return sub, nil
}

type redisSubscription struct {
	pubsub *goredis.PubSub
	events chan ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan ChangeEvent { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// forward relays matching events until the subscription is closed. go-redis
// reconnects and re-subscribes on its own after a dropped connection, and
// anything published meanwhile is gone. The first confirmation was consumed
// in Subscribe, so a later one means such a reconnect happened: the events
// channel is closed so the watcher re-subscribes and re-reads the row.
func (s *redisSubscription) forward(key string) {
	defer close(s.events)

	ch := s.pubsub.ChannelWithSubscriptions()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case *goredis.Subscription:
				if m.Kind == "subscribe" {
					slog.Warn("Settings: redis pub/sub reconnected, ending subscription", "channel", m.Channel)
					return
				}
			case *goredis.Message:
				ev, ok := decodeEvent([]byte(m.Payload), key)
				if !ok {
					continue
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		case <-s.done:
			return
		}
	}
}

func decodeEvent(payload []byte, key string) (ChangeEvent, bool) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		slog.Warn("Dropping malformed change event", "error", err)
		return ChangeEvent{}, false
	}
	if ev.Key != key {
		return ChangeEvent{}, false
	}
	return ev, true
}

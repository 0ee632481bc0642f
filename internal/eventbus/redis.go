package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"

	"go-event-hub/internal/core"
)

// DefaultPrefix is prepended to every topic to build the Redis channel name.
const DefaultPrefix = "eventhub:"

// RedisBus implements Bus using Redis Pub/Sub with automatic reconnection.
type RedisBus struct {
	mu            sync.Mutex
	client        *redis.Client
	options       *redis.Options
	prefix        string
	subscriptions map[string]*redis.PubSub
	retired       []*redis.Client
	logger        hclog.Logger
}

// NewRedisBus creates a Redis-backed bus. An empty prefix means DefaultPrefix.
func NewRedisBus(opts *redis.Options, prefix string, logger hclog.Logger) *RedisBus {
	if logger == nil {
		logger = hclog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisBus{
		client:        redis.NewClient(opts),
		options:       opts,
		prefix:        prefix,
		subscriptions: make(map[string]*redis.PubSub),
		logger:        logger,
	}
}

// ensureConnection pings the server and reconnects if necessary. A ping that
// fails because ctx is done says nothing about the server and is ignored. The
// old client stays open until Close while subscriptions still read from it.
func (b *RedisBus) ensureConnection(ctx context.Context) {
	err := b.client.Ping(ctx).Err()
	if err == nil || ctx.Err() != nil {
		return
	}
	b.logger.Warn("reconnecting to redis", "addr", b.options.Addr, "error", err)
	if len(b.subscriptions) > 0 {
		b.retired = append(b.retired, b.client)
	} else {
		_ = b.client.Close()
	}
	b.client = redis.NewClient(b.options)
}

func (b *RedisBus) channel(topic string) string { return b.prefix + topic }

// Publish sends an event to a topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, event core.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %q: %w", topic, err)
	}
	b.mu.Lock()
	b.ensureConnection(ctx)
	client := b.client
	b.mu.Unlock()
	if err := client.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("publish %q: %w", topic, err)
	}
	return nil
}

// receive pumps messages from pubsub into a channel until ctx is done or the
// pubsub is closed.
func (b *RedisBus) receive(ctx context.Context, pubsub *redis.PubSub) <-chan core.Event {
	ch := make(chan core.Event)
	go func() {
		defer close(ch)
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) || errors.Is(err, net.ErrClosed) {
					return
				}
				b.logger.Error("receive failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			var ev core.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Subscribe listens on all topics through a single channel. It returns once
// Redis has confirmed every subscription.
func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan core.Event, error) {
	if len(topics) == 0 {
		return nil, errors.New("subscribe: no topics")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureConnection(ctx)

	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = b.channel(topic)
	}
	ps := b.client.Subscribe(ctx, channels...)
	for range channels {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("subscribe %v: %w", topics, err)
		}
	}
	for _, topic := range topics {
		b.subscriptions[topic] = ps
	}
	b.logger.Debug("subscribed", "topics", topics)
	return b.receive(ctx, ps), nil
}

// Unsubscribe stops listening on topics. A PubSub left without topics is
// closed, which also closes the channel returned by Subscribe.
func (b *RedisBus) Unsubscribe(ctx context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result error
	for _, topic := range topics {
		ps, ok := b.subscriptions[topic]
		if !ok {
			continue
		}
		delete(b.subscriptions, topic)
		if !b.inUse(ps) {
			if err := ps.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("close %q: %w", topic, err))
			}
			continue
		}
		if err := ps.Unsubscribe(ctx, b.channel(topic)); err != nil {
			result = multierror.Append(result, fmt.Errorf("unsubscribe %q: %w", topic, err))
		}
	}
	return result
}

func (b *RedisBus) inUse(ps *redis.PubSub) bool {
	for _, other := range b.subscriptions {
		if other == ps {
			return true
		}
	}
	return false
}

// Close terminates all subscriptions and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result error
	closed := make(map[*redis.PubSub]bool)
	for topic, ps := range b.subscriptions {
		if closed[ps] {
			continue
		}
		closed[ps] = true
		if err := ps.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %q: %w", topic, err))
		}
	}
	b.subscriptions = make(map[string]*redis.PubSub)
	for _, client := range append(b.retired, b.client) {
		if err := client.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	b.retired = nil
	return result
}

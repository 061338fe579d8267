package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	redisclient "github.com/zatekoja/nextbestaction/internal/infrastructure/clients/redis"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// subscriberBuffer is the per-subscriber backlog before events are dropped
const subscriberBuffer = 64

// topic is one Redis channel and the local listeners fed from it
type topic struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.RecommendationEvent]struct{}
}

// RedisEventBus fans recommendation lifecycle events out over Redis pub/sub.
// Every process holding a bus shares one Redis subscription per channel.
type RedisEventBus struct {
	client  *redisclient.Client
	mu      sync.RWMutex
	topics  map[string]*topic
	dropped atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRedisEventBus creates a new Redis-backed event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends event to channel. Delivery is at most once.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.RecommendationEvent) error {
	ctx, span := observability.StartSpan(ctx, "events.publish")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("messaging.destination", channel),
		attribute.String("recommendation.id", event.RecommendationID),
		attribute.String("event.type", string(event.EventType)),
	)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation event: %w", err)
	}

	receivers, err := b.client.Client().Publish(ctx, channel, data).Result()
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Int64("receivers", receivers).
		Msg("published recommendation event")
	return nil
}

// Subscribe returns a channel of events that stays open until ctx is done or
// the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RecommendationEvent, error) {
	if b.ctx.Err() != nil {
		return nil, errors.New("event bus is closed")
	}

	listener := make(chan *entities.RecommendationEvent, subscriberBuffer)

	b.mu.Lock()
	t, ok := b.topics[channel]
	if !ok {
		t = &topic{
			pubsub:    b.client.Client().Subscribe(b.ctx, channel),
			listeners: make(map[chan *entities.RecommendationEvent]struct{}),
		}
		b.topics[channel] = t
		go b.relay(channel, t.pubsub)
	}
	t.listeners[listener] = struct{}{}
	count := len(t.listeners)
	b.mu.Unlock()

	observability.LoggerFromContext(ctx).Info().
		Str("channel", channel).
		Int("listeners", count).
		Msg("subscribed to recommendation events")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.unsubscribe(channel, listener)
	}()

	return listener, nil
}

// Dropped reports how many deliveries were skipped because a listener fell behind
func (b *RedisEventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *RedisEventBus) relay(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger().With().Str("channel", channel).Logger()
	messages := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.RecommendationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Msg("dropping malformed recommendation event")
				continue
			}

			b.mu.RLock()
			t := b.topics[channel]
			if t != nil {
				for listener := range t.listeners {
					select {
					case listener <- &event:
					default:
						b.dropped.Add(1)
						logger.Warn().Str("event_id", event.ID).Msg("listener backlog full, event dropped")
					}
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) unsubscribe(channel string, listener chan *entities.RecommendationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[channel]
	if !ok {
		return
	}
	if _, ok := t.listeners[listener]; !ok {
		return
	}
	delete(t.listeners, listener)
	close(listener)

	if len(t.listeners) == 0 {
		delete(b.topics, channel)
		if err := t.pubsub.Close(); err != nil {
			observability.GetLogger().Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
		}
	}
}

// Close ends every subscription and closes all listener channels
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	topics := b.topics
	b.topics = make(map[string]*topic)
	b.mu.Unlock()

	var errs []error
	for channel, t := range topics {
		for listener := range t.listeners {
			close(listener)
		}
		if err := t.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", channel, err))
		}
	}

	observability.GetLogger().Info().Int64("dropped", b.dropped.Load()).Msg("event bus closed")
	return errors.Join(errs...)
}

package events_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/adapters/events"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/redis"
	"github.com/zatekoja/nextbestaction/pkg/config"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("Skipping Redis event bus test: TEST_REDIS_HOST not set")
	}
	port := 6379
	if v, err := strconv.Atoi(os.Getenv("TEST_REDIS_PORT")); err == nil {
		port = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, &config.RedisConfig{Enabled: true, Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func waitForEvent(t *testing.T, ch <-chan *entities.RecommendationEvent) *entities.RecommendationEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "listener closed before event arrived")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recommendation event")
		return nil
	}
}

func TestRedisEventBus_FansOutToEveryListener(t *testing.T) {
	bus := events.NewRedisEventBus(newTestRedisClient(t))
	defer bus.Close()

	channel := providers.GetHCPChannel("hcp-bus-" + strconv.FormatInt(time.Now().UnixNano(), 10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	rec := &entities.Recommendation{ID: "rec-bus-1", HCPID: "hcp-001", State: entities.RecommendationStatePending}
	event := entities.NewRecommendationEvent(rec, entities.RecommendationEventCreated)
	require.NoError(t, bus.Publish(context.Background(), channel, event))

	got1 := waitForEvent(t, first)
	got2 := waitForEvent(t, second)
	assert.Equal(t, event.ID, got1.ID)
	assert.Equal(t, event.ID, got2.ID)
	assert.Equal(t, "rec-bus-1", got1.RecommendationID)
}

func TestRedisEventBus_ListenerClosesWithContext(t *testing.T) {
	bus := events.NewRedisEventBus(newTestRedisClient(t))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	listener, err := bus.Subscribe(ctx, providers.EventChannelRecommendations)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-listener:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not closed after cancel")
	}
}

func TestRedisEventBus_CloseEndsListeners(t *testing.T) {
	bus := events.NewRedisEventBus(newTestRedisClient(t))

	listener, err := bus.Subscribe(context.Background(), providers.EventChannelRecommendations)
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-listener
	assert.False(t, ok)

	_, err = bus.Subscribe(context.Background(), providers.EventChannelRecommendations)
	assert.Error(t, err)
}

package providers

import (
	"context"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to recommendation events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RecommendationEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RecommendationEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelRecommendations carries every lifecycle change
	EventChannelRecommendations = "recommendations:events"

	// EventChannelHCPPrefix is the prefix for HCP-specific channels
	EventChannelHCPPrefix = "hcp:"
)

// GetHCPChannel returns the channel name for events about one HCP
func GetHCPChannel(hcpID string) string {
	return EventChannelHCPPrefix + hcpID
}

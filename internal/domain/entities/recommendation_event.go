package entities

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationEventType represents the lifecycle change that produced an event
type RecommendationEventType string

const (
	RecommendationEventCreated   RecommendationEventType = "recommendation_created"
	RecommendationEventStarted   RecommendationEventType = "recommendation_started"
	RecommendationEventExecuted  RecommendationEventType = "recommendation_executed"
	RecommendationEventCancelled RecommendationEventType = "recommendation_cancelled"
	RecommendationEventRejected  RecommendationEventType = "recommendation_rejected"
)

// RecommendationEvent is published after every successful lifecycle change
type RecommendationEvent struct {
	ID               string                  `json:"id"`
	RecommendationID string                  `json:"recommendation_id"`
	HCPID            string                  `json:"hcp_id"`
	EventType        RecommendationEventType `json:"event_type"`
	State            RecommendationState     `json:"state"`
	Outcome          *RecommendationOutcome  `json:"outcome,omitempty"`
	Timestamp        time.Time               `json:"timestamp"`
}

// NewRecommendationEvent creates an event snapshotting the recommendation's state
func NewRecommendationEvent(rec *Recommendation, eventType RecommendationEventType) *RecommendationEvent {
	return &RecommendationEvent{
		ID:               uuid.New().String(),
		RecommendationID: rec.ID,
		HCPID:            rec.HCPID,
		EventType:        eventType,
		State:            rec.State,
		Outcome:          rec.Outcome,
		Timestamp:        rec.UpdatedAt,
	}
}

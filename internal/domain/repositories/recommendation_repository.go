package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// RecommendationRepository persists recommendations. Rows are never deleted.
type RecommendationRepository interface {
	// Create inserts a new recommendation and assigns its creation sequence
	Create(ctx context.Context, rec *entities.Recommendation) error

	// CreateBatch inserts every recommendation or none of them
	CreateBatch(ctx context.Context, recs []*entities.Recommendation) error

	// GetByID retrieves a recommendation by ID
	GetByID(ctx context.Context, id string) (*entities.Recommendation, error)

	// UpdateState applies update only if the row is still in expected state at
	// update.ExpectedVersion. A lost race returns an INVALID_TRANSITION AppError.
	UpdateState(ctx context.Context, id string, expected entities.RecommendationState, update entities.StateUpdate) (*entities.Recommendation, error)

	// Query returns matching recommendations ordered by priority desc, score desc, creation order
	Query(ctx context.Context, filter RecommendationFilter) ([]*entities.Recommendation, error)

	// CountByState returns row counts grouped by state and outcome
	CountByState(ctx context.Context) ([]StateCount, error)
}

// StateCount is the number of recommendations in one state with one outcome.
// Outcome is empty for recommendations that were never executed.
type StateCount struct {
	State   entities.RecommendationState
	Outcome entities.RecommendationOutcome
	Count   int
}

// RecommendationFilter defines filters for querying recommendations
type RecommendationFilter struct {
	HCPID       string
	ActionType  entities.ActionType
	Channel     entities.Channel
	State       entities.RecommendationState
	MinPriority int
	MaxPriority int
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

package providers

import (
	"context"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// OutcomeLearner consumes executed recommendations. Implementations may
// adjust future scoring; the lifecycle never waits on or fails because of them.
type OutcomeLearner interface {
	Learn(ctx context.Context, rec *entities.Recommendation) error
}

// OutcomeStatsStore keeps executed/succeeded counters per dimension value
type OutcomeStatsStore interface {
	// Increment adds one execution (and one success when succeeded) to each dimension value
	Increment(ctx context.Context, values map[entities.OutcomeDimension]string, succeeded bool, at time.Time) error

	// Tallies returns all counters for a dimension
	Tallies(ctx context.Context, dimension entities.OutcomeDimension) ([]entities.OutcomeTally, error)
}

package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// OutcomeLearningService records executed outcomes and reports which
// channels, action types and hours tend to succeed. It does not change scores.
type OutcomeLearningService struct {
	store providers.OutcomeStatsStore
}

var _ providers.OutcomeLearner = (*OutcomeLearningService)(nil)

// NewOutcomeLearningService creates a new outcome learning service
func NewOutcomeLearningService(store providers.OutcomeStatsStore) *OutcomeLearningService {
	return &OutcomeLearningService{store: store}
}

// Learn counts a completed recommendation. Not-applicable outcomes are ignored.
func (s *OutcomeLearningService) Learn(ctx context.Context, rec *entities.Recommendation) error {
	if rec == nil || rec.Outcome == nil || rec.ExecutedAt == nil {
		return apperrors.NewValidationError("recommendation has no recorded outcome")
	}
	if *rec.Outcome == entities.RecommendationOutcomeNotApplicable {
		return nil
	}

	executedAt := rec.ExecutedAt.UTC()
	values := map[entities.OutcomeDimension]string{
		entities.OutcomeDimensionChannel:    string(rec.Channel),
		entities.OutcomeDimensionActionType: string(rec.ActionType),
		entities.OutcomeDimensionHour:       fmt.Sprintf("%02d", executedAt.Hour()),
	}

	if err := s.store.Increment(ctx, values, rec.Outcome.Succeeded(), executedAt); err != nil {
		return apperrors.NewExternalError("failed to record outcome", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("recommendation_id", rec.ID).
		Str("outcome", string(*rec.Outcome)).
		Msg("outcome recorded")
	return nil
}

// SuccessPatterns returns per-dimension success rates, best first
func (s *OutcomeLearningService) SuccessPatterns(ctx context.Context) (*entities.SuccessPatterns, error) {
	channels, err := s.rankedTallies(ctx, entities.OutcomeDimensionChannel)
	if err != nil {
		return nil, err
	}
	actionTypes, err := s.rankedTallies(ctx, entities.OutcomeDimensionActionType)
	if err != nil {
		return nil, err
	}
	hours, err := s.rankedTallies(ctx, entities.OutcomeDimensionHour)
	if err != nil {
		return nil, err
	}

	return &entities.SuccessPatterns{
		Channels:    channels,
		ActionTypes: actionTypes,
		Hours:       hours,
	}, nil
}

func (s *OutcomeLearningService) rankedTallies(ctx context.Context, dimension entities.OutcomeDimension) ([]entities.OutcomeTally, error) {
	tallies, err := s.store.Tallies(ctx, dimension)
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("failed to read %s outcomes", dimension), err)
	}

	for i := range tallies {
		if tallies[i].Executed > 0 {
			tallies[i].SuccessRate = float64(tallies[i].Succeeded) / float64(tallies[i].Executed)
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		if a.Executed != b.Executed {
			return a.Executed > b.Executed
		}
		return a.Value < b.Value
	})
	return tallies, nil
}

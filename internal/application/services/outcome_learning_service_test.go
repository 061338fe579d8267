package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/adapters/memory"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

func executed(channel entities.Channel, action entities.ActionType, outcome entities.RecommendationOutcome, hour int) *entities.Recommendation {
	at := time.Date(2024, 3, 1, hour, 30, 0, 0, time.UTC)
	return &entities.Recommendation{
		ID:         "rec",
		Channel:    channel,
		ActionType: action,
		State:      entities.RecommendationStateCompleted,
		Outcome:    &outcome,
		ExecutedAt: &at,
	}
}

func TestOutcomeLearningService(t *testing.T) {
	ctx := context.Background()
	svc := services.NewOutcomeLearningService(memory.NewOutcomeStatsStore())

	learned := []*entities.Recommendation{
		executed(entities.ChannelEmail, entities.ActionTypeFollowUp, entities.RecommendationOutcomeSuccessful, 9),
		executed(entities.ChannelEmail, entities.ActionTypeFollowUp, entities.RecommendationOutcomeFailed, 9),
		executed(entities.ChannelPersonal, entities.ActionTypeInitialContact, entities.RecommendationOutcomePartial, 15),
		executed(entities.ChannelPhone, entities.ActionTypeFollowUp, entities.RecommendationOutcomeNotApplicable, 15),
	}
	for _, rec := range learned {
		require.NoError(t, svc.Learn(ctx, rec))
	}

	patterns, err := svc.SuccessPatterns(ctx)
	require.NoError(t, err)

	require.Len(t, patterns.Channels, 2)
	assert.Equal(t, "personal", patterns.Channels[0].Value)
	assert.Equal(t, 1.0, patterns.Channels[0].SuccessRate)
	assert.Equal(t, "email", patterns.Channels[1].Value)
	assert.Equal(t, int64(2), patterns.Channels[1].Executed)
	assert.Equal(t, 0.5, patterns.Channels[1].SuccessRate)

	require.Len(t, patterns.Hours, 2)
	assert.Equal(t, "15", patterns.Hours[0].Value)
	assert.Equal(t, "09", patterns.Hours[1].Value)

	require.Len(t, patterns.ActionTypes, 2)
	assert.Equal(t, string(entities.ActionTypeInitialContact), patterns.ActionTypes[0].Value)

	err = svc.Learn(ctx, &entities.Recommendation{ID: "pending"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/adapters/memory"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

const compliantModelResponse = `{"recommendations":[
	{"action_type":"product_presentation","channel":"personal","ideal_moment":"2030-01-10T10:00:00Z",
	 "message":"Present the Cardiovex prescribing information","products":["prd-001"],"score":88,
	 "reasons":["interest in hypertension"],"restrictions":["approved content only"]},
	{"action_type":"event_invitation","channel":"email","ideal_moment":"2030-01-15T10:00:00Z",
	 "message":"Invite to the regional hypertension symposium","score":64}
]}`

const nonCompliantModelResponse = `{"recommendations":[
	{"action_type":"product_presentation","channel":"personal","message":"Cardiovex cures hypertension","score":95},
	{"action_type":"follow_up","channel":"email","message":"Lipidam is better than any statin","score":80}
]}`

func TestRecommendationService_GenerateForHCP(t *testing.T) {
	ctx := context.Background()

	t.Run("persists compliant model candidates", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return(compliantModelResponse, nil)
		stack := newTestStack(model)

		recs, err := stack.service.GenerateForHCP(ctx, "hcp-001")
		require.NoError(t, err)

		require.Len(t, recs, 2)
		for _, r := range recs {
			assert.Equal(t, entities.RecommendationStatePending, r.State)
			assert.Equal(t, "hcp-001", r.HCPID)
			assert.Equal(t, entities.RecommendationSourceModel, r.Source)
		}
		assert.Equal(t, 9, recs[0].Priority)
		assert.ElementsMatch(t, []string{"ac-001", "ac-002"}, recs[0].ApprovedContentIDs)
		assert.Empty(t, recs[1].ApprovedContentIDs)

		stored, err := stack.service.QueryRecommendations(ctx, repositories.RecommendationFilter{HCPID: "hcp-001"})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("falls back when every model candidate is rejected", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return(nonCompliantModelResponse, nil)
		stack := newTestStack(model)

		recs, err := stack.service.GenerateForHCP(ctx, "hcp-001")
		require.NoError(t, err)

		require.Len(t, recs, 1)
		assert.Equal(t, entities.RecommendationSourceFallback, recs[0].Source)
		assert.Equal(t, entities.ActionTypeFollowUp, recs[0].ActionType)
	})

	t.Run("model outage falls back to initial contact for uncontacted hcp", func(t *testing.T) {
		model := new(MockModelProvider)
		model.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
		stack := newTestStack(model)

		recs, err := stack.service.GenerateForHCP(ctx, "hcp-002")
		require.NoError(t, err)

		require.Len(t, recs, 1)
		assert.Equal(t, entities.ActionTypeInitialContact, recs[0].ActionType)
		assert.Equal(t, entities.ChannelPersonal, recs[0].Channel)
		assert.Equal(t, 70.0, recs[0].Score)
		assert.Equal(t, 7, recs[0].Priority)
	})

	t.Run("unknown hcp", func(t *testing.T) {
		stack := newTestStack(nil)

		_, err := stack.service.GenerateForHCP(ctx, "hcp-999")

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	})
}

func TestRecommendationService_GenerateBulk(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack(nil)

	result, err := stack.service.GenerateBulk(ctx, []string{"hcp-001", "hcp-missing", "hcp-003"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 3, result.Successes+result.Failures)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "hcp-missing", result.Failed[0].HCPID)
	assert.Equal(t, apperrors.ErrorTypeNotFound, result.Failed[0].Kind)
	for _, r := range result.Recommendations {
		assert.NotEqual(t, "hcp-missing", r.HCPID)
	}

	_, err = stack.service.GenerateBulk(ctx, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestRecommendationService_GenerateBulk_StoreFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	model := new(MockModelProvider)
	model.On("Complete", mock.Anything, mock.Anything).Return(compliantModelResponse, nil)
	store := memory.NewRecommendationStore()
	repo := &failingBatchStore{RecommendationStore: store}
	stack := newTestStackWithRepo(model, store, repo)

	result, err := stack.service.GenerateBulk(ctx, []string{"hcp-001"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Successes)
	assert.Equal(t, 1, result.Failures)
	assert.Empty(t, result.Recommendations)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, apperrors.ErrorTypeInternal, result.Failed[0].Kind)

	require.Len(t, repo.batches, 1)
	assert.Len(t, repo.batches[0], 2)
	assert.Zero(t, repo.singles)

	stored, err := store.Query(ctx, repositories.RecommendationFilter{HCPID: "hcp-001"})
	require.NoError(t, err)
	assert.Empty(t, stored)

	stats, err := stack.service.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingRecommendations)
}

func TestRecommendationService_ExecuteFeedsDashboardAndPatterns(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack(nil)

	first, err := stack.service.GenerateForHCP(ctx, "hcp-001")
	require.NoError(t, err)
	second, err := stack.service.GenerateForHCP(ctx, "hcp-002")
	require.NoError(t, err)
	third, err := stack.service.GenerateForHCP(ctx, "hcp-003")
	require.NoError(t, err)

	_, err = stack.service.Execute(ctx, first[0].ID, entities.RecommendationOutcomeSuccessful)
	require.NoError(t, err)
	_, err = stack.service.Execute(ctx, second[0].ID, entities.RecommendationOutcomeFailed)
	require.NoError(t, err)
	_, err = stack.service.Cancel(ctx, third[0].ID, "duplicate")
	require.NoError(t, err)

	dashboard, err := stack.service.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dashboard.ActiveHCPs)
	assert.Equal(t, 0, dashboard.PendingRecommendations)
	assert.InDelta(t, 0.5, dashboard.SuccessRate, 1e-9)

	stats, err := stack.service.GetRecommendationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByState[entities.RecommendationStateCompleted])
	assert.Equal(t, 1, stats.ByState[entities.RecommendationStateCancelled])
	assert.Equal(t, 2, stats.ByActionType[entities.ActionTypeInitialContact])
	assert.Equal(t, 1, stats.ByChannel[entities.ChannelEmail])
	assert.InDelta(t, (80.0+70.0+70.0)/3, stats.AverageScore, 1e-9)

	patterns, err := stack.service.GetSuccessPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns.Channels, 2)
	assert.Equal(t, string(entities.ChannelEmail), patterns.Channels[0].Value)
	assert.Equal(t, 1.0, patterns.Channels[0].SuccessRate)
	assert.Equal(t, 0.0, patterns.Channels[1].SuccessRate)
}

package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/adapters/memory"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
	"go.uber.org/goleak"
)

func TestLifecycleService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists approved candidate as pending", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

		rec, err := svc.Create(ctx, approvedCandidate(85))
		require.NoError(t, err)

		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, entities.RecommendationStatePending, rec.State)
		assert.Equal(t, 9, rec.Priority)
		assert.Nil(t, rec.ExecutedAt)
		assert.Nil(t, rec.Outcome)

		stored, err := svc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, stored.ID)
	})

	t.Run("rejects unapproved candidate", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
		in := approvedCandidate(85)
		in.Compliance = entities.ComplianceResult{
			Violations: map[entities.ViolationKind]bool{entities.ViolationUnapprovedClaim: true},
		}

		_, err := svc.Create(ctx, in)

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeComplianceRejected))
	})

	t.Run("rejects out of range score", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

		_, err := svc.Create(ctx, approvedCandidate(120))

		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	})
}

func TestLifecycleService_CreateKeepsEmptyListsNonNil(t *testing.T) {
	ctx := context.Background()
	svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

	rec, err := svc.Create(ctx, approvedCandidate(85))
	require.NoError(t, err)

	stored, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	for _, list := range [][]string{stored.Products, stored.ApprovedContentIDs, stored.Restrictions} {
		assert.NotNil(t, list)
		assert.Empty(t, list)
	}
}

func TestLifecycleService_CreateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("stores every input", func(t *testing.T) {
		store := memory.NewRecommendationStore()
		svc := services.NewLifecycleService(store, nil)

		recs, err := svc.CreateAll(ctx, []services.CreateRecommendationInput{approvedCandidate(85), approvedCandidate(60)})
		require.NoError(t, err)
		require.Len(t, recs, 2)

		stored, err := store.Query(ctx, repositories.RecommendationFilter{})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("one invalid input stores nothing", func(t *testing.T) {
		store := memory.NewRecommendationStore()
		svc := services.NewLifecycleService(store, nil)

		_, err := svc.CreateAll(ctx, []services.CreateRecommendationInput{approvedCandidate(85), approvedCandidate(120)})
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

		stored, err := store.Query(ctx, repositories.RecommendationFilter{})
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("no inputs", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

		recs, err := svc.CreateAll(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})
}

func TestLifecycleService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("execute stamps outcome and learns", func(t *testing.T) {
		learner := new(MockOutcomeLearner)
		learner.On("Learn", mock.Anything, mock.MatchedBy(func(r *entities.Recommendation) bool {
			return r.State == entities.RecommendationStateCompleted
		})).Return(nil).Once()
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), learner)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		done, err := svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeSuccessful)
		require.NoError(t, err)

		assert.Equal(t, entities.RecommendationStateCompleted, done.State)
		require.NotNil(t, done.Outcome)
		assert.Equal(t, entities.RecommendationOutcomeSuccessful, *done.Outcome)
		require.NotNil(t, done.ExecutedAt)
		learner.AssertExpectations(t)
	})

	t.Run("double execute fails without re-stamping", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)
		first, err := svc.Execute(ctx, rec.ID, entities.RecommendationOutcomePartial)
		require.NoError(t, err)

		_, err = svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeFailed)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInvalidTransition))

		stored, err := svc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, *first.ExecutedAt, *stored.ExecutedAt)
		assert.Equal(t, entities.RecommendationOutcomePartial, *stored.Outcome)
	})

	t.Run("cancel keeps reason and is terminal", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, rec.ID, "HCP on leave")
		require.NoError(t, err)
		assert.Equal(t, entities.RecommendationStateCancelled, cancelled.State)
		assert.Equal(t, "HCP on leave", cancelled.StateReason)

		_, err = svc.Cancel(ctx, rec.ID, "again")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInvalidTransition))
		_, err = svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeSuccessful)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInvalidTransition))
	})

	t.Run("start then execute", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		started, err := svc.Start(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RecommendationStateInProcess, started.State)

		_, err = svc.Reject(ctx, rec.ID, "not relevant")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInvalidTransition))

		done, err := svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeNotApplicable)
		require.NoError(t, err)
		assert.Equal(t, entities.RecommendationStateCompleted, done.State)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		_, err = svc.Execute(ctx, rec.ID, entities.RecommendationOutcome("great"))
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

		_, err := svc.Start(ctx, "missing")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	})
}

func TestLifecycleService_LearnerFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		learner := new(MockOutcomeLearner)
		learner.On("Learn", mock.Anything, mock.Anything).Return(errors.New("redis down"))
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), learner)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		_, err = svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeSuccessful)
		assert.NoError(t, err)
	})

	t.Run("panic", func(t *testing.T) {
		learner := new(MockOutcomeLearner)
		learner.On("Learn", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(nil)
		svc := services.NewLifecycleService(memory.NewRecommendationStore(), learner)
		rec, err := svc.Create(ctx, approvedCandidate(70))
		require.NoError(t, err)

		_, err = svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeSuccessful)
		assert.NoError(t, err)
	})
}

func TestLifecycleService_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
	rec, err := svc.Create(ctx, approvedCandidate(70))
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = svc.Execute(ctx, rec.ID, entities.RecommendationOutcomeSuccessful)
			} else {
				_, errs[i] = svc.Cancel(ctx, rec.ID, "race")
			}
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInvalidTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
}

func TestLifecycleService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	bus := new(MockEventBus)
	bus.On("Publish", mock.Anything, providers.EventChannelRecommendations, mock.AnythingOfType("*entities.RecommendationEvent")).Return(nil)
	bus.On("Publish", mock.Anything, providers.GetHCPChannel("hcp-001"), mock.AnythingOfType("*entities.RecommendationEvent")).
		Return(errors.New("publish failed"))

	svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)
	svc.SetEventBus(bus)

	rec, err := svc.Create(ctx, approvedCandidate(70))
	require.NoError(t, err)
	_, err = svc.Start(ctx, rec.ID)
	require.NoError(t, err)

	bus.AssertNumberOfCalls(t, "Publish", 4)
	last := bus.Calls[len(bus.Calls)-1].Arguments.Get(2).(*entities.RecommendationEvent)
	assert.Equal(t, entities.RecommendationEventStarted, last.EventType)
	assert.Equal(t, entities.RecommendationStateInProcess, last.State)
}

func TestLifecycleService_Query(t *testing.T) {
	ctx := context.Background()
	svc := services.NewLifecycleService(memory.NewRecommendationStore(), nil)

	for _, score := range []float64{70, 50, 90, 46} {
		_, err := svc.Create(ctx, approvedCandidate(score))
		require.NoError(t, err)
	}

	t.Run("ranked by priority then score", func(t *testing.T) {
		recs, err := svc.Query(ctx, repositories.RecommendationFilter{})
		require.NoError(t, err)

		got := make([]float64, len(recs))
		for i, r := range recs {
			got[i] = r.Score
		}
		if diff := cmp.Diff([]float64{90, 70, 50, 46}, got); diff != "" {
			t.Errorf("ranking mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("by priority", func(t *testing.T) {
		recs, err := svc.ListByPriority(ctx, 5)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, 50.0, recs[0].Score)
		assert.Equal(t, 46.0, recs[1].Score)
	})

	t.Run("pending with limit", func(t *testing.T) {
		recs, err := svc.ListPending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := svc.Query(ctx, repositories.RecommendationFilter{MinPriority: 8, MaxPriority: 3})
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

		_, err = svc.Query(ctx, repositories.RecommendationFilter{Channel: "fax"})
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

		_, err = svc.ListByPriority(ctx, 11)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	})
}

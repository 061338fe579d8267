package memory

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

func pendingRecommendation(id string, priority int, score float64) *entities.Recommendation {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &entities.Recommendation{
		ID:         id,
		HCPID:      "hcp-1",
		ActionType: entities.ActionTypeFollowUp,
		Channel:    entities.ChannelEmail,
		Priority:   priority,
		Score:      score,
		Message:    "Following up",
		State:      entities.RecommendationStatePending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRecommendationStore_QueryOrdering(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pendingRecommendation("low", 5, 99)))
	require.NoError(t, store.Create(ctx, pendingRecommendation("second", 8, 70)))
	require.NoError(t, store.Create(ctx, pendingRecommendation("first", 8, 90)))
	require.NoError(t, store.Create(ctx, pendingRecommendation("third", 8, 70)))

	recs, err := store.Query(ctx, repositories.RecommendationFilter{})
	require.NoError(t, err)

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]string{"first", "second", "third", "low"}, ids); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestRecommendationStore_QueryFilters(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	a := pendingRecommendation("a", 9, 88)
	b := pendingRecommendation("b", 3, 30)
	b.HCPID = "hcp-2"
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	recs, err := store.Query(ctx, repositories.RecommendationFilter{MinPriority: 5})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)

	recs, err = store.Query(ctx, repositories.RecommendationFilter{HCPID: "hcp-2"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].ID)

	recs, err = store.Query(ctx, repositories.RecommendationFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommendationStore_CreateDuplicate(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pendingRecommendation("a", 5, 50)))
	err := store.Create(ctx, pendingRecommendation("a", 5, 50))

	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))
}

func TestRecommendationStore_UpdateStateCompareAndSwap(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, pendingRecommendation("a", 5, 50)))

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateState(ctx, "a", entities.RecommendationStatePending, entities.StateUpdate{
				ExpectedVersion: 1,
				NewState:        entities.RecommendationStateCancelled,
				Reason:          "duplicate",
				UpdatedAt:       time.Now(),
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if apperrors.Is(err, apperrors.ErrorTypeInvalidTransition) {
				atomic.AddInt32(&losses, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(19), losses)

	rec, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entities.RecommendationStateCancelled, rec.State)
	assert.Equal(t, 2, rec.Version)
}

func TestRecommendationStore_ReturnsCopies(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()
	rec := pendingRecommendation("a", 5, 50)
	rec.Products = []string{"prd-1"}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Products[0] = "mutated"

	again, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"prd-1"}, again.Products)
}

func TestRecommendationStore_CreateBatchIsAllOrNothing(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, pendingRecommendation("existing", 5, 50)))

	err := store.CreateBatch(ctx, []*entities.Recommendation{
		pendingRecommendation("fresh", 7, 70),
		pendingRecommendation("existing", 5, 50),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))

	_, err = store.GetByID(ctx, "fresh")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))

	err = store.CreateBatch(ctx, []*entities.Recommendation{
		pendingRecommendation("twin", 7, 70),
		pendingRecommendation("twin", 7, 70),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))

	require.NoError(t, store.CreateBatch(ctx, []*entities.Recommendation{
		pendingRecommendation("b", 7, 70),
		pendingRecommendation("c", 7, 80),
	}))
	recs, err := store.Query(ctx, repositories.RecommendationFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestRecommendationStore_CountByState(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Create(ctx, pendingRecommendation(id, 5, 50)))
	}

	execute := func(id string, outcome entities.RecommendationOutcome) {
		_, err := store.UpdateState(ctx, id, entities.RecommendationStatePending, entities.StateUpdate{
			ExpectedVersion: 1,
			NewState:        entities.RecommendationStateCompleted,
			Outcome:         &outcome,
			UpdatedAt:       time.Now(),
		})
		require.NoError(t, err)
	}
	execute("a", entities.RecommendationOutcomeSuccessful)
	execute("b", entities.RecommendationOutcomeSuccessful)
	execute("c", entities.RecommendationOutcomeFailed)

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)

	want := []repositories.StateCount{
		{State: entities.RecommendationStateCompleted, Outcome: entities.RecommendationOutcomeFailed, Count: 1},
		{State: entities.RecommendationStateCompleted, Outcome: entities.RecommendationOutcomeSuccessful, Count: 2},
		{State: entities.RecommendationStatePending, Count: 1},
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("unexpected counts (-want +got):\n%s", diff)
	}
}

func TestRecommendationStore_EmptyListsStayEmpty(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()
	rec := pendingRecommendation("a", 5, 50)
	rec.Reasons = []string{}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"products":[]`)
	assert.Contains(t, string(body), `"reasons":[]`)
	assert.NotContains(t, string(body), `null,`)
}

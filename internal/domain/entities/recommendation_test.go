package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 1},
		{4, 1},
		{5, 1},
		{14.9, 1},
		{15, 2},
		{70, 7},
		{84, 8},
		{85, 9},
		{99, 10},
		{100, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityFromScore(tt.score), "score %.1f", tt.score)
	}
}

func TestPriorityFromScore_AlwaysInRange(t *testing.T) {
	for s := 0.0; s <= 100; s += 0.5 {
		p := PriorityFromScore(s)
		assert.GreaterOrEqual(t, p, 1)
		assert.LessOrEqual(t, p, 10)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[RecommendationState][]RecommendationState{
		RecommendationStatePending:   {RecommendationStateInProcess, RecommendationStateCompleted, RecommendationStateCancelled, RecommendationStateRejected},
		RecommendationStateInProcess: {RecommendationStateCompleted, RecommendationStateCancelled},
	}
	states := []RecommendationState{
		RecommendationStatePending,
		RecommendationStateInProcess,
		RecommendationStateCompleted,
		RecommendationStateCancelled,
		RecommendationStateRejected,
	}

	for _, from := range states {
		for _, to := range states {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestRecommendationState_Terminal(t *testing.T) {
	assert.False(t, RecommendationStatePending.Terminal())
	assert.False(t, RecommendationStateInProcess.Terminal())
	assert.True(t, RecommendationStateCompleted.Terminal())
	assert.True(t, RecommendationStateCancelled.Terminal())
	assert.True(t, RecommendationStateRejected.Terminal())
	assert.False(t, RecommendationState("archived").Terminal())
}

func TestTaxonomies(t *testing.T) {
	assert.True(t, ActionTypeMedicalEducation.Valid())
	assert.False(t, ActionType("cold_call").Valid())
	assert.True(t, ChannelWhatsApp.Valid())
	assert.False(t, Channel("fax").Valid())
	assert.True(t, RecommendationOutcomeNotApplicable.Valid())
	assert.False(t, RecommendationOutcome("pending").Valid())
}

func TestLessForRanking(t *testing.T) {
	a := &Recommendation{Priority: 8, Score: 90, Seq: 3}
	b := &Recommendation{Priority: 8, Score: 70, Seq: 1}
	c := &Recommendation{Priority: 5, Score: 99, Seq: 2}
	d := &Recommendation{Priority: 8, Score: 70, Seq: 4}

	assert.True(t, LessForRanking(a, b))
	assert.True(t, LessForRanking(b, c))
	assert.True(t, LessForRanking(b, d))
	assert.False(t, LessForRanking(d, b))
}

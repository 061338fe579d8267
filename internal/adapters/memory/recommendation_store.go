package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// RecommendationStore keeps recommendations in process memory for local
// development and tests. All methods return copies.
type RecommendationStore struct {
	mu      sync.RWMutex
	seq     int64
	records map[string]*entities.Recommendation
}

var _ repositories.RecommendationRepository = (*RecommendationStore)(nil)

// NewRecommendationStore creates an empty store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{records: make(map[string]*entities.Recommendation)}
}

// Create stores rec and assigns the next sequence number.
func (s *RecommendationStore) Create(ctx context.Context, rec *entities.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("recommendation %s already exists", rec.ID))
	}

	s.seq++
	rec.Seq = s.seq
	s.records[rec.ID] = cloneRecommendation(rec)
	return nil
}

// CreateBatch stores recs atomically: a duplicate id anywhere in the batch
// leaves the store unchanged.
func (s *RecommendationStore) CreateBatch(ctx context.Context, recs []*entities.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		_, stored := s.records[rec.ID]
		_, batched := seen[rec.ID]
		if stored || batched {
			return apperrors.NewConflictError(fmt.Sprintf("recommendation %s already exists", rec.ID))
		}
		seen[rec.ID] = struct{}{}
	}

	for _, rec := range recs {
		s.seq++
		rec.Seq = s.seq
		s.records[rec.ID] = cloneRecommendation(rec)
	}
	return nil
}

// GetByID returns a copy of the stored recommendation.
func (s *RecommendationStore) GetByID(ctx context.Context, id string) (*entities.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recommendation %s not found", id))
	}
	return cloneRecommendation(rec), nil
}

// UpdateState compares state and version under the write lock before applying update.
func (s *RecommendationStore) UpdateState(ctx context.Context, id string, expected entities.RecommendationState, update entities.StateUpdate) (*entities.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recommendation %s not found", id))
	}
	if rec.State != expected || rec.Version != update.ExpectedVersion {
		return nil, apperrors.NewInvalidTransitionError(fmt.Sprintf(
			"recommendation %s is %s, cannot move to %s", id, rec.State, update.NewState))
	}

	rec.State = update.NewState
	rec.StateReason = update.Reason
	rec.UpdatedAt = update.UpdatedAt
	rec.Version++
	if update.Outcome != nil {
		outcome := *update.Outcome
		rec.Outcome = &outcome
	}
	if update.ExecutedAt != nil {
		executedAt := *update.ExecutedAt
		rec.ExecutedAt = &executedAt
	}

	return cloneRecommendation(rec), nil
}

// Query filters and ranks stored recommendations.
func (s *RecommendationStore) Query(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.Recommendation, error) {
	s.mu.RLock()
	matched := make([]*entities.Recommendation, 0, len(s.records))
	for _, rec := range s.records {
		if matches(rec, filter) {
			matched = append(matched, cloneRecommendation(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return entities.LessForRanking(matched[i], matched[j])
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*entities.Recommendation{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// CountByState tallies stored recommendations by state and outcome.
func (s *RecommendationStore) CountByState(ctx context.Context) ([]repositories.StateCount, error) {
	type key struct {
		state   entities.RecommendationState
		outcome entities.RecommendationOutcome
	}

	s.mu.RLock()
	tally := make(map[key]int)
	for _, rec := range s.records {
		k := key{state: rec.State}
		if rec.Outcome != nil {
			k.outcome = *rec.Outcome
		}
		tally[k]++
	}
	s.mu.RUnlock()

	counts := make([]repositories.StateCount, 0, len(tally))
	for k, n := range tally {
		counts = append(counts, repositories.StateCount{State: k.state, Outcome: k.outcome, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].State != counts[j].State {
			return counts[i].State < counts[j].State
		}
		return counts[i].Outcome < counts[j].Outcome
	})
	return counts, nil
}

func matches(rec *entities.Recommendation, f repositories.RecommendationFilter) bool {
	switch {
	case f.HCPID != "" && rec.HCPID != f.HCPID:
		return false
	case f.ActionType != "" && rec.ActionType != f.ActionType:
		return false
	case f.Channel != "" && rec.Channel != f.Channel:
		return false
	case f.State != "" && rec.State != f.State:
		return false
	case f.MinPriority > 0 && rec.Priority < f.MinPriority:
		return false
	case f.MaxPriority > 0 && rec.Priority > f.MaxPriority:
		return false
	case f.From != nil && rec.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && rec.CreatedAt.After(*f.To):
		return false
	}
	return true
}

func cloneRecommendation(rec *entities.Recommendation) *entities.Recommendation {
	out := *rec
	out.Products = cloneStrings(rec.Products)
	out.ApprovedContentIDs = cloneStrings(rec.ApprovedContentIDs)
	out.Restrictions = cloneStrings(rec.Restrictions)
	out.Reasons = cloneStrings(rec.Reasons)
	if rec.Outcome != nil {
		outcome := *rec.Outcome
		out.Outcome = &outcome
	}
	if rec.ExecutedAt != nil {
		executedAt := *rec.ExecutedAt
		out.ExecutedAt = &executedAt
	}
	return &out
}

// cloneStrings never returns nil, so empty lists encode as [] like the
// Postgres adapter's.
func cloneStrings(in []string) []string {
	return append(make([]string, 0, len(in)), in...)
}

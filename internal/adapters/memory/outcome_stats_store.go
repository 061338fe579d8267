package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
)

type counter struct {
	executed  int64
	succeeded int64
}

// OutcomeStatsStore keeps outcome counters in process memory.
type OutcomeStatsStore struct {
	mu       sync.Mutex
	counters map[entities.OutcomeDimension]map[string]*counter
}

var _ providers.OutcomeStatsStore = (*OutcomeStatsStore)(nil)

func NewOutcomeStatsStore() *OutcomeStatsStore {
	return &OutcomeStatsStore{counters: make(map[entities.OutcomeDimension]map[string]*counter)}
}

func (s *OutcomeStatsStore) Increment(ctx context.Context, values map[entities.OutcomeDimension]string, succeeded bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for dimension, value := range values {
		byValue, ok := s.counters[dimension]
		if !ok {
			byValue = make(map[string]*counter)
			s.counters[dimension] = byValue
		}
		c, ok := byValue[value]
		if !ok {
			c = &counter{}
			byValue[value] = c
		}
		c.executed++
		if succeeded {
			c.succeeded++
		}
	}
	return nil
}

// Tallies returns counters for dimension ordered by value.
func (s *OutcomeStatsStore) Tallies(ctx context.Context, dimension entities.OutcomeDimension) ([]entities.OutcomeTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tallies := make([]entities.OutcomeTally, 0, len(s.counters[dimension]))
	for value, c := range s.counters[dimension] {
		tallies = append(tallies, entities.OutcomeTally{
			Dimension: dimension,
			Value:     value,
			Executed:  c.executed,
			Succeeded: c.succeeded,
		})
	}
	sort.Slice(tallies, func(i, j int) bool { return tallies[i].Value < tallies[j].Value })
	return tallies, nil
}

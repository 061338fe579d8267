package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	redisclient "github.com/zatekoja/nextbestaction/internal/infrastructure/clients/redis"
)

const (
	outcomeKeyPrefix = "nba:outcomes:"
	executedSuffix   = ":executed"
	succeededSuffix  = ":succeeded"
)

// OutcomeStatsStore keeps outcome counters in one Redis hash per dimension.
// Fields are "<value>:executed" and "<value>:succeeded".
type OutcomeStatsStore struct {
	client *redisclient.Client
}

var _ providers.OutcomeStatsStore = (*OutcomeStatsStore)(nil)

// NewOutcomeStatsStore creates a Redis-backed outcome stats store
func NewOutcomeStatsStore(client *redisclient.Client) *OutcomeStatsStore {
	return &OutcomeStatsStore{client: client}
}

func outcomeKey(dimension entities.OutcomeDimension) string {
	return outcomeKeyPrefix + string(dimension)
}

// Increment bumps every dimension in one MULTI/EXEC so the counters move together
func (s *OutcomeStatsStore) Increment(ctx context.Context, values map[entities.OutcomeDimension]string, succeeded bool, at time.Time) error {
	_, err := s.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for dimension, value := range values {
			key := outcomeKey(dimension)
			pipe.HIncrBy(ctx, key, value+executedSuffix, 1)
			if succeeded {
				pipe.HIncrBy(ctx, key, value+succeededSuffix, 1)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// Tallies reads all counters of a dimension, ordered by value
func (s *OutcomeStatsStore) Tallies(ctx context.Context, dimension entities.OutcomeDimension) ([]entities.OutcomeTally, error) {
	fields, err := s.client.Client().HGetAll(ctx, outcomeKey(dimension)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome stats: %w", err)
	}
	return parseTallies(dimension, fields), nil
}

func parseTallies(dimension entities.OutcomeDimension, fields map[string]string) []entities.OutcomeTally {
	byValue := make(map[string]*entities.OutcomeTally)
	get := func(value string) *entities.OutcomeTally {
		t, ok := byValue[value]
		if !ok {
			t = &entities.OutcomeTally{Dimension: dimension, Value: value}
			byValue[value] = t
		}
		return t
	}

	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(field, executedSuffix):
			get(strings.TrimSuffix(field, executedSuffix)).Executed = n
		case strings.HasSuffix(field, succeededSuffix):
			get(strings.TrimSuffix(field, succeededSuffix)).Succeeded = n
		}
	}

	tallies := make([]entities.OutcomeTally, 0, len(byValue))
	for _, t := range byValue {
		tallies = append(tallies, *t)
	}
	sort.Slice(tallies, func(i, j int) bool { return tallies[i].Value < tallies[j].Value })
	return tallies
}

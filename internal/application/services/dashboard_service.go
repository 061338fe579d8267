package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	"golang.org/x/sync/errgroup"
)

const defaultTopN = 5

// DashboardService computes aggregate statistics. Nothing is cached; every
// call reads current data.
type DashboardService struct {
	directory       repositories.HCPDirectory
	attribution     repositories.PrescriptionAttributionRepository
	recommendations repositories.RecommendationRepository
	topN            int
	now             func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	directory repositories.HCPDirectory,
	attribution repositories.PrescriptionAttributionRepository,
	recommendations repositories.RecommendationRepository,
) *DashboardService {
	return &DashboardService{
		directory:       directory,
		attribution:     attribution,
		recommendations: recommendations,
		topN:            defaultTopN,
		now:             time.Now,
	}
}

// GetDashboardStats returns the headline numbers shown on the dashboard
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*entities.DashboardStats, error) {
	ctx, span := observability.StartSpan(ctx, "DashboardService.GetDashboardStats")
	defer span.End()

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &entities.DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.ActiveHCPs, err = s.directory.CountActiveHCPs(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ContactsThisMonth, err = s.directory.CountContactsSince(gctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		stats.TopHCPs, err = s.directory.ListTopEngagedHCPs(gctx, s.topN)
		return err
	})
	g.Go(func() (err error) {
		stats.AttributedPrescriptions, stats.PrescriptionValue, err = s.attribution.AttributedTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TopProducts, err = s.attribution.TopProducts(gctx, s.topN)
		return err
	})
	g.Go(func() error {
		counts, err := s.recommendations.CountByState(gctx)
		if err != nil {
			return err
		}
		stats.PendingRecommendations, stats.SuccessRate = summarizeCounts(counts)
		return nil
	})

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	if stats.TopHCPs == nil {
		stats.TopHCPs = []entities.HCPRanking{}
	}
	if stats.TopProducts == nil {
		stats.TopProducts = []entities.ProductRanking{}
	}
	return stats, nil
}

// GetRecommendationStats breaks all persisted recommendations down by state, type and channel
func (s *DashboardService) GetRecommendationStats(ctx context.Context) (*entities.RecommendationStats, error) {
	all, err := s.recommendations.Query(ctx, repositories.RecommendationFilter{})
	if err != nil {
		return nil, fmt.Errorf("recommendation stats: %w", err)
	}

	stats := &entities.RecommendationStats{
		Total:        len(all),
		ByState:      make(map[entities.RecommendationState]int),
		ByActionType: make(map[entities.ActionType]int),
		ByChannel:    make(map[entities.Channel]int),
	}

	var scoreSum float64
	completed := make([]*entities.Recommendation, 0)
	for _, rec := range all {
		stats.ByState[rec.State]++
		stats.ByActionType[rec.ActionType]++
		stats.ByChannel[rec.Channel]++
		scoreSum += rec.Score
		if rec.State == entities.RecommendationStateCompleted {
			completed = append(completed, rec)
		}
	}
	if len(all) > 0 {
		stats.AverageScore = scoreSum / float64(len(all))
	}
	stats.SuccessRate = successRate(completed)

	return stats, nil
}

// summarizeCounts returns the pending total and the success rate of
// completed recommendations from grouped state counts.
func summarizeCounts(counts []repositories.StateCount) (pending int, rate float64) {
	var completed, succeeded int
	for _, c := range counts {
		switch c.State {
		case entities.RecommendationStatePending:
			pending += c.Count
		case entities.RecommendationStateCompleted:
			completed += c.Count
			if c.Outcome.Succeeded() {
				succeeded += c.Count
			}
		}
	}
	if completed > 0 {
		rate = float64(succeeded) / float64(completed)
	}
	return pending, rate
}

// successRate is the fraction of completed recommendations whose outcome
// was successful or partial; zero when nothing is completed.
func successRate(completed []*entities.Recommendation) float64 {
	if len(completed) == 0 {
		return 0
	}
	succeeded := 0
	for _, rec := range completed {
		if rec.Outcome != nil && rec.Outcome.Succeeded() {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(completed))
}

package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// HCPRecommendationGenerator runs the full pipeline for one HCP
type HCPRecommendationGenerator interface {
	GenerateForHCP(ctx context.Context, hcpID string) ([]*entities.Recommendation, error)
}

// BulkFailure describes one HCP whose pipeline failed
type BulkFailure struct {
	HCPID   string              `json:"hcp_id"`
	Kind    apperrors.ErrorType `json:"kind"`
	Message string              `json:"message"`
}

// BulkGenerationResult aggregates a bulk run. Successes+Failures equals the input size.
type BulkGenerationResult struct {
	Successes       int                        `json:"successes"`
	Failures        int                        `json:"failures"`
	Recommendations []*entities.Recommendation `json:"recommendations"`
	Failed          []BulkFailure              `json:"failed"`
}

// BulkGenerationService runs per-HCP generation across many HCPs with a bounded worker count
type BulkGenerationService struct {
	generator HCPRecommendationGenerator
	workers   int
}

// NewBulkGenerationService creates a new bulk generation service
func NewBulkGenerationService(generator HCPRecommendationGenerator, workers int) *BulkGenerationService {
	if workers <= 0 {
		workers = 4
	}
	return &BulkGenerationService{generator: generator, workers: workers}
}

type bulkItem struct {
	recs []*entities.Recommendation
	err  error
}

// GenerateBulk processes every id independently. A failing id never aborts
// the others; its error is recorded in the result instead.
func (s *BulkGenerationService) GenerateBulk(ctx context.Context, hcpIDs []string) (*BulkGenerationResult, error) {
	if len(hcpIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one hcp id is required")
	}

	ctx, span := observability.StartSpan(ctx, "BulkGenerationService.GenerateBulk")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	items := make([]bulkItem, len(hcpIDs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range hcpIDs {
		g.Go(func() error {
			items[i] = s.runOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkGenerationResult{
		Recommendations: make([]*entities.Recommendation, 0),
		Failed:          make([]BulkFailure, 0),
	}
	for i, item := range items {
		if item.err != nil {
			result.Failures++
			result.Failed = append(result.Failed, BulkFailure{
				HCPID:   hcpIDs[i],
				Kind:    apperrors.TypeOf(item.err),
				Message: apperrors.MessageOf(item.err),
			})
			logger.Warn().Err(item.err).Str("hcp_id", hcpIDs[i]).Msg("bulk generation failed for hcp")
			continue
		}
		result.Successes++
		result.Recommendations = append(result.Recommendations, item.recs...)
	}

	logger.Info().
		Int("requested", len(hcpIDs)).
		Int("successes", result.Successes).
		Int("failures", result.Failures).
		Msg("bulk generation finished")

	return result, nil
}

func (s *BulkGenerationService) runOne(ctx context.Context, hcpID string) (item bulkItem) {
	defer func() {
		if r := recover(); r != nil {
			item = bulkItem{err: apperrors.NewInternalError(fmt.Sprintf("generation panicked: %v", r), nil)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return bulkItem{err: apperrors.NewInternalError("bulk generation cancelled", err)}
	}

	recs, err := s.generator.GenerateForHCP(ctx, hcpID)
	return bulkItem{recs: recs, err: err}
}

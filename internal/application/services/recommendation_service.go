package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// RecommendationServiceDeps wires the pipeline stages behind the facade
type RecommendationServiceDeps struct {
	Assembler   *ContextAssembler
	Generator   *RecommendationGenerator
	Validator   *ComplianceValidator
	Lifecycle   *LifecycleService
	Dashboard   *DashboardService
	Learning    *OutcomeLearningService
	BulkWorkers int
}

// RecommendationService is the single entry point used by the HTTP layer and CLIs
type RecommendationService struct {
	assembler *ContextAssembler
	generator *RecommendationGenerator
	validator *ComplianceValidator
	lifecycle *LifecycleService
	dashboard *DashboardService
	learning  *OutcomeLearningService
	bulk      *BulkGenerationService
}

var _ HCPRecommendationGenerator = (*RecommendationService)(nil)

// NewRecommendationService creates the facade. Learning may be nil.
func NewRecommendationService(deps RecommendationServiceDeps) *RecommendationService {
	s := &RecommendationService{
		assembler: deps.Assembler,
		generator: deps.Generator,
		validator: deps.Validator,
		lifecycle: deps.Lifecycle,
		dashboard: deps.Dashboard,
		learning:  deps.Learning,
	}
	s.bulk = NewBulkGenerationService(s, deps.BulkWorkers)
	return s
}

// GenerateForHCP assembles the HCP's context, generates candidates, and
// persists the ones that pass compliance. When every model candidate is
// rejected the fallback set is validated and persisted instead.
func (s *RecommendationService) GenerateForHCP(ctx context.Context, hcpID string) ([]*entities.Recommendation, error) {
	ctx, span := observability.StartSpan(ctx, "RecommendationService.GenerateForHCP")
	defer span.End()
	logger := observability.LoggerFromContext(ctx).With().Str("hcp_id", hcpID).Logger()

	dc, err := s.assembler.Assemble(ctx, hcpID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	candidates := s.generator.Generate(ctx, dc)
	created, err := s.persistApproved(ctx, hcpID, dc, candidates)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if len(created) == 0 && candidates[0].Source == entities.RecommendationSourceModel {
		logger.Warn().Int("candidates", len(candidates)).Msg("all model candidates rejected by compliance, using fallback")
		candidates = s.generator.Fallback(dc)
		created, err = s.persistApproved(ctx, hcpID, dc, candidates)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	}

	if len(created) == 0 {
		err := apperrors.NewComplianceRejectedError(fmt.Sprintf("no compliant recommendation could be generated for hcp %s", hcpID))
		observability.RecordError(span, err)
		return nil, err
	}

	observability.RecordGenerated(ctx, string(created[0].Source), len(created))
	logger.Info().Int("created", len(created)).Str("source", string(created[0].Source)).Msg("recommendations generated")
	return created, nil
}

func (s *RecommendationService) persistApproved(
	ctx context.Context,
	hcpID string,
	dc *entities.DecisionContext,
	candidates []entities.RawRecommendation,
) ([]*entities.Recommendation, error) {
	logger := observability.LoggerFromContext(ctx)
	content := dc.ApprovedContent()
	approved := make([]CreateRecommendationInput, 0, len(candidates))

	for _, candidate := range candidates {
		result := s.validator.Validate(candidate.Message)
		if !result.Approved {
			kinds := result.ViolationKinds()
			names := make([]string, len(kinds))
			for i, k := range kinds {
				names[i] = string(k)
			}
			observability.RecordComplianceRejection(ctx, names...)
			logger.Info().
				Str("hcp_id", hcpID).
				Str("action_type", string(candidate.ActionType)).
				Strs("violations", names).
				Msg("candidate dropped by compliance")
			continue
		}

		approved = append(approved, CreateRecommendationInput{
			HCPID:              hcpID,
			Candidate:          candidate,
			Compliance:         result,
			ApprovedContentIDs: matchApprovedContent(content, candidate.Products),
		})
	}

	// One batch per run: a store failure must not leave part of the set behind.
	return s.lifecycle.CreateAll(ctx, approved)
}

// matchApprovedContent returns the ids of content covering any of the products.
func matchApprovedContent(content []entities.ApprovedContent, products []string) []string {
	ids := make([]string, 0)
	if len(products) == 0 {
		return ids
	}
	wanted := make(map[string]struct{}, len(products))
	for _, p := range products {
		wanted[p] = struct{}{}
	}
	for _, c := range content {
		for _, p := range c.ProductIDs {
			if _, ok := wanted[p]; ok {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

// GenerateBulk runs GenerateForHCP for each id with bounded concurrency
func (s *RecommendationService) GenerateBulk(ctx context.Context, hcpIDs []string) (*BulkGenerationResult, error) {
	return s.bulk.GenerateBulk(ctx, hcpIDs)
}

func (s *RecommendationService) GetRecommendation(ctx context.Context, id string) (*entities.Recommendation, error) {
	return s.lifecycle.Get(ctx, id)
}

func (s *RecommendationService) QueryRecommendations(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.Recommendation, error) {
	return s.lifecycle.Query(ctx, filter)
}

func (s *RecommendationService) ListPending(ctx context.Context, limit int) ([]*entities.Recommendation, error) {
	return s.lifecycle.ListPending(ctx, limit)
}

func (s *RecommendationService) ListByPriority(ctx context.Context, priority int) ([]*entities.Recommendation, error) {
	return s.lifecycle.ListByPriority(ctx, priority)
}

func (s *RecommendationService) Start(ctx context.Context, id string) (*entities.Recommendation, error) {
	return s.lifecycle.Start(ctx, id)
}

func (s *RecommendationService) Execute(ctx context.Context, id string, outcome entities.RecommendationOutcome) (*entities.Recommendation, error) {
	return s.lifecycle.Execute(ctx, id, outcome)
}

func (s *RecommendationService) Cancel(ctx context.Context, id, reason string) (*entities.Recommendation, error) {
	return s.lifecycle.Cancel(ctx, id, reason)
}

func (s *RecommendationService) Reject(ctx context.Context, id, reason string) (*entities.Recommendation, error) {
	return s.lifecycle.Reject(ctx, id, reason)
}

func (s *RecommendationService) GetDashboardStats(ctx context.Context) (*entities.DashboardStats, error) {
	return s.dashboard.GetDashboardStats(ctx)
}

func (s *RecommendationService) GetRecommendationStats(ctx context.Context) (*entities.RecommendationStats, error) {
	return s.dashboard.GetRecommendationStats(ctx)
}

// GetSuccessPatterns returns empty patterns when outcome learning is disabled
func (s *RecommendationService) GetSuccessPatterns(ctx context.Context) (*entities.SuccessPatterns, error) {
	if s.learning == nil {
		return &entities.SuccessPatterns{
			Channels:    []entities.OutcomeTally{},
			ActionTypes: []entities.OutcomeTally{},
			Hours:       []entities.OutcomeTally{},
		}, nil
	}
	return s.learning.SuccessPatterns(ctx)
}

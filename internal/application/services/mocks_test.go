package services_test

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	"github.com/zatekoja/nextbestaction/internal/adapters/memory"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// Mocks

type MockOutcomeLearner struct {
	mock.Mock
}

func (m *MockOutcomeLearner) Learn(ctx context.Context, rec *entities.Recommendation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.RecommendationEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RecommendationEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.RecommendationEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

// testStack is a fully wired pipeline over the in-memory adapters and the demo dataset.
type testStack struct {
	store     *memory.RecommendationStore
	directory *memory.Directory
	stats     *memory.OutcomeStatsStore
	lifecycle *services.LifecycleService
	learning  *services.OutcomeLearningService
	service   *services.RecommendationService
}

func newTestStack(model providers.ModelProvider) *testStack {
	store := memory.NewRecommendationStore()
	return newTestStackWithRepo(model, store, store)
}

// newTestStackWithRepo wires the pipeline over repo, which must front store.
func newTestStackWithRepo(model providers.ModelProvider, store *memory.RecommendationStore, repo repositories.RecommendationRepository) *testStack {
	directory := memory.NewDirectory(repo)
	directory.Load(fixtures.Demo(time.Now()))
	stats := memory.NewOutcomeStatsStore()

	learning := services.NewOutcomeLearningService(stats)
	lifecycle := services.NewLifecycleService(repo, learning)
	service := services.NewRecommendationService(services.RecommendationServiceDeps{
		Assembler:   services.NewContextAssembler(directory, directory, directory, directory, services.DefaultAssemblerOptions()),
		Generator:   services.NewRecommendationGenerator(model, services.GeneratorOptions{ModelName: "test", Timeout: time.Second}),
		Validator:   services.NewComplianceValidator(nil),
		Lifecycle:   lifecycle,
		Dashboard:   services.NewDashboardService(directory, directory, repo),
		Learning:    learning,
		BulkWorkers: 2,
	})

	return &testStack{
		store:     store,
		directory: directory,
		stats:     stats,
		lifecycle: lifecycle,
		learning:  learning,
		service:   service,
	}
}

// failingBatchStore rejects every batch insert and records what it was asked to store.
type failingBatchStore struct {
	*memory.RecommendationStore
	batches [][]*entities.Recommendation
	singles int
}

func (s *failingBatchStore) Create(ctx context.Context, rec *entities.Recommendation) error {
	s.singles++
	return s.RecommendationStore.Create(ctx, rec)
}

func (s *failingBatchStore) CreateBatch(_ context.Context, recs []*entities.Recommendation) error {
	s.batches = append(s.batches, recs)
	return apperrors.NewInternalError("failed to insert recommendation", errors.New("connection reset"))
}

func approvedCandidate(score float64) services.CreateRecommendationInput {
	return services.CreateRecommendationInput{
		HCPID: "hcp-001",
		Candidate: entities.RawRecommendation{
			ActionType:  entities.ActionTypeFollowUp,
			Channel:     entities.ChannelEmail,
			IdealMoment: time.Now().Add(48 * time.Hour),
			Message:     "Sharing the approved prescribing information",
			Score:       score,
			Reasons:     []string{"recent contact"},
			Source:      entities.RecommendationSourceModel,
		},
		Compliance: entities.ComplianceResult{Approved: true},
	}
}

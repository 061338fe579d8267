package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// CreateRecommendationInput is a validated candidate ready to be persisted
type CreateRecommendationInput struct {
	HCPID              string
	Candidate          entities.RawRecommendation
	Compliance         entities.ComplianceResult
	ApprovedContentIDs []string
}

// LifecycleService owns creation and state transitions of recommendations
type LifecycleService struct {
	repo     repositories.RecommendationRepository
	learner  providers.OutcomeLearner
	eventBus providers.EventBus
	now      func() time.Time
	newID    func() string
}

// NewLifecycleService creates a new lifecycle service. learner may be nil.
func NewLifecycleService(repo repositories.RecommendationRepository, learner providers.OutcomeLearner) *LifecycleService {
	return &LifecycleService{
		repo:    repo,
		learner: learner,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// SetEventBus enables publishing of lifecycle events
func (s *LifecycleService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// Create persists an approved candidate as a PENDING recommendation
func (s *LifecycleService) Create(ctx context.Context, in CreateRecommendationInput) (*entities.Recommendation, error) {
	rec, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.created(ctx, rec)
	return rec, nil
}

// CreateAll persists every input as PENDING, or none of them. An invalid
// input or a store failure leaves nothing behind.
func (s *LifecycleService) CreateAll(ctx context.Context, inputs []CreateRecommendationInput) ([]*entities.Recommendation, error) {
	recs := make([]*entities.Recommendation, 0, len(inputs))
	for _, in := range inputs {
		rec, err := s.build(in)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return recs, nil
	}

	if err := s.repo.CreateBatch(ctx, recs); err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.created(ctx, rec)
	}
	return recs, nil
}

func (s *LifecycleService) build(in CreateRecommendationInput) (*entities.Recommendation, error) {
	if strings.TrimSpace(in.HCPID) == "" {
		return nil, apperrors.NewValidationError("hcp id is required")
	}
	if !in.Compliance.Approved {
		return nil, apperrors.NewComplianceRejectedError("recommendation message failed compliance validation")
	}
	c := in.Candidate
	if !c.ActionType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid action type %q", c.ActionType))
	}
	if !c.Channel.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid channel %q", c.Channel))
	}
	if !entities.ValidScore(c.Score) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("score %v is outside [0,100]", c.Score))
	}

	now := s.now().UTC()
	return &entities.Recommendation{
		ID:                 s.newID(),
		HCPID:              in.HCPID,
		ActionType:         c.ActionType,
		Priority:           entities.PriorityFromScore(c.Score),
		Channel:            c.Channel,
		IdealMoment:        c.IdealMoment.UTC(),
		Message:            c.Message,
		Rationale:          c.Rationale,
		Products:           copyStrings(c.Products),
		ApprovedContentIDs: copyStrings(in.ApprovedContentIDs),
		Restrictions:       copyStrings(c.Restrictions),
		Reasons:            copyStrings(c.Reasons),
		Source:             c.Source,
		Score:              c.Score,
		State:              entities.RecommendationStatePending,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (s *LifecycleService) created(ctx context.Context, rec *entities.Recommendation) {
	observability.LoggerFromContext(ctx).Info().
		Str("recommendation_id", rec.ID).
		Str("hcp_id", rec.HCPID).
		Str("action_type", string(rec.ActionType)).
		Int("priority", rec.Priority).
		Msg("recommendation created")

	s.publish(ctx, rec, entities.RecommendationEventCreated)
}

func copyStrings(in []string) []string {
	return append(make([]string, 0, len(in)), in...)
}

// Get retrieves a recommendation by ID
func (s *LifecycleService) Get(ctx context.Context, id string) (*entities.Recommendation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("recommendation id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Start marks a pending recommendation as being worked on
func (s *LifecycleService) Start(ctx context.Context, id string) (*entities.Recommendation, error) {
	return s.transition(ctx, id, entities.RecommendationStateInProcess, entities.RecommendationEventStarted, func(u *entities.StateUpdate) {})
}

// Execute completes a recommendation with the observed outcome, then feeds the
// outcome to the learner. Learner failures are logged and never returned.
func (s *LifecycleService) Execute(ctx context.Context, id string, outcome entities.RecommendationOutcome) (*entities.Recommendation, error) {
	if !outcome.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid outcome %q", outcome))
	}

	rec, err := s.transition(ctx, id, entities.RecommendationStateCompleted, entities.RecommendationEventExecuted, func(u *entities.StateUpdate) {
		executedAt := u.UpdatedAt
		u.Outcome = &outcome
		u.ExecutedAt = &executedAt
	})
	if err != nil {
		return nil, err
	}

	s.learn(ctx, rec)
	return rec, nil
}

// Cancel withdraws a pending or in-process recommendation
func (s *LifecycleService) Cancel(ctx context.Context, id, reason string) (*entities.Recommendation, error) {
	return s.transition(ctx, id, entities.RecommendationStateCancelled, entities.RecommendationEventCancelled, func(u *entities.StateUpdate) {
		u.Reason = strings.TrimSpace(reason)
	})
}

// Reject discards a pending recommendation the representative will not act on
func (s *LifecycleService) Reject(ctx context.Context, id, reason string) (*entities.Recommendation, error) {
	return s.transition(ctx, id, entities.RecommendationStateRejected, entities.RecommendationEventRejected, func(u *entities.StateUpdate) {
		u.Reason = strings.TrimSpace(reason)
	})
}

// Query returns recommendations matching filter in ranking order
func (s *LifecycleService) Query(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.Recommendation, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	recs, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool { return entities.LessForRanking(recs[i], recs[j]) })
	return recs, nil
}

// ListPending returns pending recommendations, highest priority first
func (s *LifecycleService) ListPending(ctx context.Context, limit int) ([]*entities.Recommendation, error) {
	return s.Query(ctx, repositories.RecommendationFilter{State: entities.RecommendationStatePending, Limit: limit})
}

// ListByPriority returns recommendations with exactly the given priority
func (s *LifecycleService) ListByPriority(ctx context.Context, priority int) ([]*entities.Recommendation, error) {
	if priority < 1 || priority > 10 {
		return nil, apperrors.NewValidationError("priority must be between 1 and 10")
	}
	return s.Query(ctx, repositories.RecommendationFilter{MinPriority: priority, MaxPriority: priority})
}

func (s *LifecycleService) transition(
	ctx context.Context,
	id string,
	to entities.RecommendationState,
	eventType entities.RecommendationEventType,
	apply func(*entities.StateUpdate),
) (*entities.Recommendation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("recommendation id is required")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entities.CanTransition(current.State, to) {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("recommendation %s cannot move from %s to %s", id, current.State, to))
	}

	update := entities.StateUpdate{
		ExpectedVersion: current.Version,
		NewState:        to,
		UpdatedAt:       s.now().UTC(),
	}
	apply(&update)

	updated, err := s.repo.UpdateState(ctx, id, current.State, update)
	if err != nil {
		return nil, err
	}

	observability.RecordTransition(ctx, string(current.State), string(to))
	observability.LoggerFromContext(ctx).Info().
		Str("recommendation_id", id).
		Str("from", string(current.State)).
		Str("state", string(to)).
		Msg("recommendation state changed")

	s.publish(ctx, updated, eventType)
	return updated, nil
}

func (s *LifecycleService) learn(ctx context.Context, rec *entities.Recommendation) {
	if s.learner == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("recommendation_id", rec.ID).Interface("panic", r).Msg("outcome learner panicked")
		}
	}()

	if err := s.learner.Learn(ctx, rec); err != nil {
		logger.Warn().Err(err).Str("recommendation_id", rec.ID).Msg("failed to learn from outcome")
	}
}

func (s *LifecycleService) publish(ctx context.Context, rec *entities.Recommendation, eventType entities.RecommendationEventType) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewRecommendationEvent(rec, eventType)
	for _, channel := range []string{providers.EventChannelRecommendations, providers.GetHCPChannel(rec.HCPID)} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("recommendation_id", rec.ID).
				Str("channel", channel).
				Msg("failed to publish recommendation event")
		}
	}
}

func validateFilter(f repositories.RecommendationFilter) error {
	if f.ActionType != "" && !f.ActionType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid action type %q", f.ActionType))
	}
	if f.Channel != "" && !f.Channel.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid channel %q", f.Channel))
	}
	if f.State != "" && !f.State.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid state %q", f.State))
	}
	if f.MinPriority < 0 || f.MinPriority > 10 || f.MaxPriority < 0 || f.MaxPriority > 10 {
		return apperrors.NewValidationError("priority bounds must be between 1 and 10")
	}
	if f.MinPriority > 0 && f.MaxPriority > 0 && f.MinPriority > f.MaxPriority {
		return apperrors.NewValidationError("min priority exceeds max priority")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return apperrors.NewValidationError("from must not be after to")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return apperrors.NewValidationError("limit and offset must not be negative")
	}
	return nil
}

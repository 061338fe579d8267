package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

const maxCandidates = 5

// GeneratorOptions configures model invocation and the fallback rule.
type GeneratorOptions struct {
	ModelName         string
	Timeout           time.Duration
	RecentContactDays int
}

// RecommendationGenerator turns a decision context into candidate actions,
// falling back to a deterministic rule whenever the model cannot be used.
type RecommendationGenerator struct {
	model providers.ModelProvider
	opts  GeneratorOptions
}

// NewRecommendationGenerator creates a generator. A nil model always yields the fallback.
func NewRecommendationGenerator(model providers.ModelProvider, opts GeneratorOptions) *RecommendationGenerator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RecentContactDays <= 0 {
		opts.RecentContactDays = 30
	}
	return &RecommendationGenerator{model: model, opts: opts}
}

// Generate returns between one and five candidates. It never fails: any
// model problem is logged and replaced by the fallback candidate.
func (g *RecommendationGenerator) Generate(ctx context.Context, dc *entities.DecisionContext) []entities.RawRecommendation {
	logger := observability.LoggerFromContext(ctx).With().Str("hcp_id", dc.HCP().ID).Logger()

	if g.model == nil {
		return g.Fallback(dc)
	}

	candidates, err := g.invoke(ctx, dc)
	if err != nil {
		logger.Warn().Err(err).Msg("model invocation failed, using fallback recommendation")
		return g.Fallback(dc)
	}
	if len(candidates) == 0 {
		logger.Warn().Msg("model returned no valid recommendations, using fallback recommendation")
		return g.Fallback(dc)
	}

	return candidates
}

func (g *RecommendationGenerator) invoke(ctx context.Context, dc *entities.DecisionContext) ([]entities.RawRecommendation, error) {
	ctx, span := observability.StartSpan(ctx, "RecommendationGenerator.invoke")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := g.model.Complete(callCtx, BuildPrompt(dc))
	observability.RecordModelCall(ctx, g.opts.ModelName, err == nil, float64(time.Since(start).Milliseconds()))
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewModelInvocationError("model call failed", err)
	}

	candidates, err := ParseModelResponse(text, dc.AssembledAt())
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewModelInvocationError("model response could not be parsed", err)
	}
	return candidates, nil
}

// Fallback returns the single rule-based candidate for dc. It depends only
// on the context, so identical contexts give identical candidates.
func (g *RecommendationGenerator) Fallback(dc *entities.DecisionContext) []entities.RawRecommendation {
	hcp := dc.HCP()
	ref := dc.AssembledAt()
	window := time.Duration(g.opts.RecentContactDays) * 24 * time.Hour

	if !dc.HasContactSince(ref.Add(-window)) {
		return []entities.RawRecommendation{{
			ActionType:  entities.ActionTypeInitialContact,
			Channel:     entities.ChannelPersonal,
			IdealMoment: ref.Add(7 * 24 * time.Hour),
			Message: fmt.Sprintf("Dr. %s, I would like to schedule a brief visit to introduce myself and learn about your %s practice.",
				hcp.LastName, strings.ToLower(hcp.Specialty)),
			Rationale:    "No contact recorded in the last 30 days.",
			Score:        70,
			Reasons:      []string{"no recent contact", "opportunity to establish the relationship"},
			Restrictions: []string{"approved content only", "no specific promises"},
			Source:       entities.RecommendationSourceFallback,
		}}
	}

	return []entities.RawRecommendation{{
		ActionType:  entities.ActionTypeFollowUp,
		Channel:     entities.ChannelEmail,
		IdealMoment: ref.Add(3 * 24 * time.Hour),
		Message: fmt.Sprintf("Dr. %s, thank you for your time during our recent conversation. I am sharing the approved material we discussed.",
			hcp.LastName),
		Rationale:    "Recent contact recorded; keep the conversation going.",
		Score:        80,
		Reasons:      []string{"recent contact", "maintain momentum"},
		Restrictions: []string{"respect contact frequency", "approved content only"},
		Source:       entities.RecommendationSourceFallback,
	}}
}

type modelRecommendation struct {
	ActionType   string   `json:"action_type"`
	Channel      string   `json:"channel"`
	IdealMoment  string   `json:"ideal_moment"`
	Message      string   `json:"message"`
	Rationale    string   `json:"rationale"`
	Products     []string `json:"products"`
	Score        *float64 `json:"score"`
	Reasons      []string `json:"reasons"`
	Restrictions []string `json:"restrictions"`
}

type modelResponse struct {
	Recommendations []json.RawMessage `json:"recommendations"`
}

var idealMomentLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

// ParseModelResponse extracts schema-valid candidates from the model's text.
// Items failing the schema check are dropped; at most five are kept.
func ParseModelResponse(text string, reference time.Time) ([]entities.RawRecommendation, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, errors.New("empty model response")
	}

	var envelope modelResponse
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if envelope.Recommendations == nil {
		return nil, errors.New("response has no recommendations field")
	}

	candidates := make([]entities.RawRecommendation, 0, maxCandidates)
	for _, item := range envelope.Recommendations {
		if len(candidates) == maxCandidates {
			break
		}
		var m modelRecommendation
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		raw, ok := m.toRaw(reference)
		if !ok {
			continue
		}
		candidates = append(candidates, raw)
	}

	return candidates, nil
}

func (m modelRecommendation) toRaw(reference time.Time) (entities.RawRecommendation, bool) {
	actionType := entities.ActionType(strings.TrimSpace(m.ActionType))
	channel := entities.Channel(strings.TrimSpace(m.Channel))
	message := strings.TrimSpace(m.Message)

	if message == "" || m.Score == nil || !entities.ValidScore(*m.Score) || !actionType.Valid() || !channel.Valid() {
		return entities.RawRecommendation{}, false
	}

	return entities.RawRecommendation{
		ActionType:   actionType,
		Channel:      channel,
		IdealMoment:  parseIdealMoment(m.IdealMoment, reference),
		Message:      message,
		Rationale:    strings.TrimSpace(m.Rationale),
		Products:     m.Products,
		Score:        *m.Score,
		Reasons:      m.Reasons,
		Restrictions: m.Restrictions,
		Source:       entities.RecommendationSourceModel,
	}, true
}

func parseIdealMoment(value string, reference time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range idealMomentLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return reference.Add(24 * time.Hour)
}

func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
)

const maxBulkHCPs = 500

// RecommendationService defines the recommendation operations used by the handler.
type RecommendationService interface {
	GenerateForHCP(ctx context.Context, hcpID string) ([]*entities.Recommendation, error)
	GenerateBulk(ctx context.Context, hcpIDs []string) (*services.BulkGenerationResult, error)
	GetRecommendation(ctx context.Context, id string) (*entities.Recommendation, error)
	QueryRecommendations(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.Recommendation, error)
	ListPending(ctx context.Context, limit int) ([]*entities.Recommendation, error)
	ListByPriority(ctx context.Context, priority int) ([]*entities.Recommendation, error)
	Start(ctx context.Context, id string) (*entities.Recommendation, error)
	Execute(ctx context.Context, id string, outcome entities.RecommendationOutcome) (*entities.Recommendation, error)
	Cancel(ctx context.Context, id, reason string) (*entities.Recommendation, error)
	Reject(ctx context.Context, id, reason string) (*entities.Recommendation, error)
	GetRecommendationStats(ctx context.Context) (*entities.RecommendationStats, error)
	GetSuccessPatterns(ctx context.Context) (*entities.SuccessPatterns, error)
}

// RecommendationHandler handles recommendation HTTP requests
type RecommendationHandler struct {
	service RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

type bulkGenerateRequest struct {
	HCPIDs []string `json:"hcp_ids"`
}

type executeRequest struct {
	Outcome entities.RecommendationOutcome `json:"outcome"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// GenerateForHCP handles POST /api/recommendations/generate/{hcpId}
func (h *RecommendationHandler) GenerateForHCP(w http.ResponseWriter, r *http.Request) {
	hcpID := r.PathValue("hcpId")
	if strings.TrimSpace(hcpID) == "" {
		respondWithError(w, http.StatusBadRequest, "hcp id is required")
		return
	}

	recs, err := h.service.GenerateForHCP(r.Context(), hcpID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"hcp_id":          hcpID,
		"recommendations": recs,
		"count":           len(recs),
	})
}

// GenerateBulk handles POST /api/recommendations/generate-bulk
func (h *RecommendationHandler) GenerateBulk(w http.ResponseWriter, r *http.Request) {
	var payload bulkGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(payload.HCPIDs) > maxBulkHCPs {
		respondWithError(w, http.StatusBadRequest, "too many hcp ids")
		return
	}

	result, err := h.service.GenerateBulk(r.Context(), payload.HCPIDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListRecommendations handles GET /api/recommendations
func (h *RecommendationHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRecommendationFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.service.QueryRecommendations(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithList(w, recs)
}

// ListPending handles GET /api/recommendations/pending
func (h *RecommendationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	recs, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithList(w, recs)
}

// ListByPriority handles GET /api/recommendations/priority/{priority}
func (h *RecommendationHandler) ListByPriority(w http.ResponseWriter, r *http.Request) {
	priority, err := strconv.Atoi(r.PathValue("priority"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid priority")
		return
	}

	recs, err := h.service.ListByPriority(r.Context(), priority)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithList(w, recs)
}

// GetRecommendation handles GET /api/recommendations/{id}
func (h *RecommendationHandler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRecommendation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// GetStats handles GET /api/recommendations/stats
func (h *RecommendationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetRecommendationStats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetPatterns handles GET /api/recommendations/patterns
func (h *RecommendationHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.service.GetSuccessPatterns(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, patterns)
}

// Transition handles POST /api/recommendations/{id}/{action}, dispatching to
// start, execute, cancel or reject.
func (h *RecommendationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "start":
		h.StartRecommendation(w, r)
	case "execute":
		h.ExecuteRecommendation(w, r)
	case "cancel":
		h.CancelRecommendation(w, r)
	case "reject":
		h.RejectRecommendation(w, r)
	default:
		respondWithError(w, http.StatusNotFound, "unknown recommendation action")
	}
}

// StartRecommendation handles POST /api/recommendations/{id}/start
func (h *RecommendationHandler) StartRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// ExecuteRecommendation handles POST /api/recommendations/{id}/execute
func (h *RecommendationHandler) ExecuteRecommendation(w http.ResponseWriter, r *http.Request) {
	var payload executeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := h.service.Execute(r.Context(), r.PathValue("id"), payload.Outcome)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// CancelRecommendation handles POST /api/recommendations/{id}/cancel
func (h *RecommendationHandler) CancelRecommendation(w http.ResponseWriter, r *http.Request) {
	var payload reasonRequest
	if err := decodeOptionalJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := h.service.Cancel(r.Context(), r.PathValue("id"), payload.Reason)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// RejectRecommendation handles POST /api/recommendations/{id}/reject
func (h *RecommendationHandler) RejectRecommendation(w http.ResponseWriter, r *http.Request) {
	var payload reasonRequest
	if err := decodeOptionalJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := h.service.Reject(r.Context(), r.PathValue("id"), payload.Reason)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func respondWithList(w http.ResponseWriter, recs []*entities.Recommendation) {
	if recs == nil {
		recs = []*entities.Recommendation{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

func parseRecommendationFilter(r *http.Request) (repositories.RecommendationFilter, error) {
	q := r.URL.Query()
	filter := repositories.RecommendationFilter{
		HCPID:      q.Get("hcp_id"),
		ActionType: entities.ActionType(q.Get("action_type")),
		Channel:    entities.Channel(q.Get("channel")),
		State:      entities.RecommendationState(q.Get("state")),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"min_priority", &filter.MinPriority},
		{"max_priority", &filter.MaxPriority},
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid %s", p.name)
		}
		*p.dst = n
	}

	times := []struct {
		name string
		dst  **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	}
	for _, p := range times {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid %s: expected RFC 3339 timestamp", p.name)
		}
		*p.dst = &t
	}

	return filter, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// DashboardService defines the dashboard operations used by the handler.
type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*entities.DashboardStats, error)
}

// DashboardHandler serves aggregate statistics
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

package repositories

import (
	"context"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// CatalogRepository exposes the product catalog and approved content store
type CatalogRepository interface {
	GetActiveProducts(ctx context.Context) ([]entities.Product, error)
	GetActiveApprovedContent(ctx context.Context) ([]entities.ApprovedContent, error)
}

// SignalRepository exposes external signals produced by the ingestion pipeline
type SignalRepository interface {
	// GetRelevantSignals returns up to limit signals for the HCP with relevance >= minRelevance, newest first
	GetRelevantSignals(ctx context.Context, hcpID string, minRelevance, limit int) ([]entities.Signal, error)
}

// SettingsRepository exposes system settings carried into every decision context
type SettingsRepository interface {
	ListSettings(ctx context.Context) ([]entities.SystemSetting, error)
}

package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// CatalogAdapter implements the catalog, signal and settings repositories
type CatalogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var (
	_ repositories.CatalogRepository  = (*CatalogAdapter)(nil)
	_ repositories.SignalRepository   = (*CatalogAdapter)(nil)
	_ repositories.SettingsRepository = (*CatalogAdapter)(nil)
)

// NewCatalogAdapter creates a new catalog adapter
func NewCatalogAdapter(client *postgres.Client) *CatalogAdapter {
	return &CatalogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetActiveProducts returns approved products ordered by name
func (a *CatalogAdapter) GetActiveProducts(ctx context.Context) ([]entities.Product, error) {
	query, args, err := a.db.Select("id", "name", "active_ingredient", "indications", "marketing_restrictions", "approved", "approved_at").
		From("products").
		Where(goqu.Ex{"approved": true}).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get products", err)
	}
	defer rows.Close()

	products := make([]entities.Product, 0)
	for rows.Next() {
		var p entities.Product
		var approvedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.ActiveIngredient, pq.Array(&p.Indications),
			pq.Array(&p.MarketingRestrictions), &p.Approved, &approvedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan product", err)
		}
		p.ApprovedAt = approvedAt.Time
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetActiveApprovedContent returns active approved content, newest approval first
func (a *CatalogAdapter) GetActiveApprovedContent(ctx context.Context) ([]entities.ApprovedContent, error) {
	query, args, err := a.db.Select("id", "type", "title", "product_ids", "version", "approved_by", "approved_at", "active").
		From("approved_content").
		Where(goqu.Ex{"active": true}).
		Order(goqu.C("approved_at").Desc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get approved content", err)
	}
	defer rows.Close()

	content := make([]entities.ApprovedContent, 0)
	for rows.Next() {
		var c entities.ApprovedContent
		var contentType string
		if err := rows.Scan(&c.ID, &contentType, &c.Title, pq.Array(&c.ProductIDs), &c.Version,
			&c.ApprovedBy, &c.ApprovedAt, &c.Active); err != nil {
			return nil, apperrors.NewInternalError("failed to scan approved content", err)
		}
		c.Type = entities.ContentType(contentType)
		content = append(content, c)
	}

	return content, rows.Err()
}

// GetRelevantSignals returns the newest signals mentioning the HCP at or above minRelevance
func (a *CatalogAdapter) GetRelevantSignals(ctx context.Context, hcpID string, minRelevance, limit int) ([]entities.Signal, error) {
	query, args, err := a.db.Select("id", "source", "content", "author", "published_at", "topics",
		"sentiment", "relevance", "mentioned_hcp_ids", "mentioned_products").
		From("signals").
		Where(
			goqu.L("? = ANY(mentioned_hcp_ids)", hcpID),
			goqu.C("relevance").Gte(minRelevance),
		).
		Order(goqu.C("published_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get signals", err)
	}
	defer rows.Close()

	signals := make([]entities.Signal, 0, limit)
	for rows.Next() {
		var s entities.Signal
		var sentiment string
		if err := rows.Scan(&s.ID, &s.Source, &s.Content, &s.Author, &s.PublishedAt, pq.Array(&s.Topics),
			&sentiment, &s.Relevance, pq.Array(&s.MentionedHCPIDs), pq.Array(&s.MentionedProducts)); err != nil {
			return nil, apperrors.NewInternalError("failed to scan signal", err)
		}
		s.Sentiment = entities.Sentiment(sentiment)
		signals = append(signals, s)
	}

	return signals, rows.Err()
}

// ListSettings returns all system settings ordered by category and name
func (a *CatalogAdapter) ListSettings(ctx context.Context) ([]entities.SystemSetting, error) {
	query, args, err := a.db.Select("name", "value", "category", "updated_at").
		From("system_settings").
		Order(goqu.C("category").Asc(), goqu.C("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get settings", err)
	}
	defer rows.Close()

	settings := make([]entities.SystemSetting, 0)
	for rows.Next() {
		var s entities.SystemSetting
		if err := rows.Scan(&s.Name, &s.Value, &s.Category, &s.UpdatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan setting", err)
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

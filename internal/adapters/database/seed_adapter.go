package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// SeedAdapter writes a fixture dataset into the directory and catalog tables
type SeedAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSeedAdapter creates a new seed adapter
func NewSeedAdapter(client *postgres.Client) *SeedAdapter {
	return &SeedAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Seed inserts ds in one transaction. Rows whose key already exists are left untouched.
func (a *SeedAdapter) Seed(ctx context.Context, ds *fixtures.Dataset) error {
	tables := []struct {
		name    string
		records []goqu.Record
	}{
		{"hcps", hcpRecords(ds)},
		{"products", productRecords(ds)},
		{"contacts", contactRecords(ds)},
		{"prescriptions", prescriptionRecords(ds)},
		{"approved_content", contentRecords(ds)},
		{"signals", signalRecords(ds)},
		{"system_settings", settingRecords(ds)},
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin seed transaction", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if len(table.records) == 0 {
			continue
		}
		rows := make([]interface{}, len(table.records))
		for i, r := range table.records {
			rows[i] = r
		}
		query, args, err := a.db.Insert(table.name).
			Rows(rows...).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build seed query for "+table.name, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to seed "+table.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit seed transaction", err)
	}
	return nil
}

// Reset truncates the seeded tables and every recommendation
func (a *SeedAdapter) Reset(ctx context.Context) error {
	_, err := a.client.DB().ExecContext(ctx, `
		TRUNCATE TABLE
			recommendations,
			prescriptions,
			contacts,
			approved_content,
			signals,
			system_settings,
			products,
			hcps
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return apperrors.NewInternalError("failed to reset tables", err)
	}
	return nil
}

func hcpRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.HCPs))
	for _, h := range ds.HCPs {
		var lastInteraction sql.NullTime
		if h.Engagement.LastInteractionAt != nil {
			lastInteraction = sql.NullTime{Time: *h.Engagement.LastInteractionAt, Valid: true}
		}
		records = append(records, goqu.Record{
			"id":                      h.ID,
			"first_name":              h.FirstName,
			"last_name":               h.LastName,
			"specialty":               h.Specialty,
			"institution":             h.Institution,
			"city":                    h.City,
			"region":                  h.Region,
			"patient_volume":          h.PatientVolume,
			"prescription_decile":     h.PrescriptionDecile,
			"response_level":          h.ResponseLevel,
			"buyer_persona":           string(h.BuyerPersona),
			"adoption_stage":          string(h.AdoptionStage),
			"clinical_interests":      pq.Array(nonNilStrings(h.ClinicalInterests)),
			"regulatory_restrictions": pq.Array(nonNilStrings(h.RegulatoryRestrictions)),
			"contact_frequency":       h.Engagement.ContactFrequency,
			"response_rate":           h.Engagement.ResponseRate,
			"response_time_hours":     h.Engagement.ResponseTimeHours,
			"interaction_quality":     h.Engagement.InteractionQuality,
			"prescriptions_generated": h.Engagement.PrescriptionsGenerated,
			"prescription_value":      h.Engagement.PrescriptionValue,
			"last_interaction_at":     lastInteraction,
			"active":                  h.Active,
			"created_at":              h.CreatedAt,
			"updated_at":              h.UpdatedAt,
		})
	}
	return records
}

func productRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.Products))
	for _, p := range ds.Products {
		records = append(records, goqu.Record{
			"id":                     p.ID,
			"name":                   p.Name,
			"active_ingredient":      p.ActiveIngredient,
			"indications":            pq.Array(nonNilStrings(p.Indications)),
			"marketing_restrictions": pq.Array(nonNilStrings(p.MarketingRestrictions)),
			"approved":               p.Approved,
			"approved_at":            p.ApprovedAt,
		})
	}
	return records
}

func contactRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.Contacts))
	for _, c := range ds.Contacts {
		records = append(records, goqu.Record{
			"id":          c.ID,
			"hcp_id":      c.HCPID,
			"type":        string(c.Type),
			"occurred_at": c.OccurredAt,
			"outcome":     string(c.Outcome),
			"channel":     string(c.Channel),
			"notes":       c.Notes,
			"product_id":  nullString(c.ProductID),
		})
	}
	return records
}

func prescriptionRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.Prescriptions))
	for _, p := range ds.Prescriptions {
		records = append(records, goqu.Record{
			"id":                p.ID,
			"hcp_id":            p.HCPID,
			"product_id":        p.ProductID,
			"recommendation_id": nullString(p.RecommendationID),
			"issued_at":         p.IssuedAt,
			"quantity":          p.Quantity,
			"kind":              string(p.Kind),
			"value":             p.Value,
		})
	}
	return records
}

func contentRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.ApprovedContent))
	for _, c := range ds.ApprovedContent {
		records = append(records, goqu.Record{
			"id":          c.ID,
			"type":        string(c.Type),
			"title":       c.Title,
			"product_ids": pq.Array(nonNilStrings(c.ProductIDs)),
			"version":     c.Version,
			"approved_by": c.ApprovedBy,
			"approved_at": c.ApprovedAt,
			"active":      c.Active,
		})
	}
	return records
}

func signalRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.Signals))
	for _, s := range ds.Signals {
		records = append(records, goqu.Record{
			"id":                 s.ID,
			"source":             s.Source,
			"content":            s.Content,
			"author":             s.Author,
			"published_at":       s.PublishedAt,
			"topics":             pq.Array(nonNilStrings(s.Topics)),
			"sentiment":          string(s.Sentiment),
			"relevance":          s.Relevance,
			"mentioned_hcp_ids":  pq.Array(nonNilStrings(s.MentionedHCPIDs)),
			"mentioned_products": pq.Array(nonNilStrings(s.MentionedProducts)),
		})
	}
	return records
}

func settingRecords(ds *fixtures.Dataset) []goqu.Record {
	records := make([]goqu.Record, 0, len(ds.Settings))
	for _, s := range ds.Settings {
		records = append(records, goqu.Record{
			"name":       s.Name,
			"value":      s.Value,
			"category":   s.Category,
			"updated_at": s.UpdatedAt,
		})
	}
	return records
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

var hcpColumns = []interface{}{
	"id", "first_name", "last_name", "specialty", "institution", "city", "region",
	"patient_volume", "prescription_decile", "response_level", "buyer_persona", "adoption_stage",
	"clinical_interests", "regulatory_restrictions",
	"contact_frequency", "response_rate", "response_time_hours", "interaction_quality",
	"prescriptions_generated", "prescription_value", "last_interaction_at",
	"active", "created_at", "updated_at",
}

// HCPAdapter implements HCPDirectory and PrescriptionAttributionRepository
type HCPAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var (
	_ repositories.HCPDirectory                      = (*HCPAdapter)(nil)
	_ repositories.PrescriptionAttributionRepository = (*HCPAdapter)(nil)
)

// NewHCPAdapter creates a new HCP adapter
func NewHCPAdapter(client *postgres.Client) *HCPAdapter {
	return &HCPAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetHCP retrieves an HCP profile by ID
func (a *HCPAdapter) GetHCP(ctx context.Context, id string) (*entities.HCP, error) {
	query, args, err := a.db.Select(hcpColumns...).
		From("hcps").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	hcp := &entities.HCP{}
	var buyerPersona, adoptionStage string
	var lastInteraction sql.NullTime

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&hcp.ID,
		&hcp.FirstName,
		&hcp.LastName,
		&hcp.Specialty,
		&hcp.Institution,
		&hcp.City,
		&hcp.Region,
		&hcp.PatientVolume,
		&hcp.PrescriptionDecile,
		&hcp.ResponseLevel,
		&buyerPersona,
		&adoptionStage,
		pq.Array(&hcp.ClinicalInterests),
		pq.Array(&hcp.RegulatoryRestrictions),
		&hcp.Engagement.ContactFrequency,
		&hcp.Engagement.ResponseRate,
		&hcp.Engagement.ResponseTimeHours,
		&hcp.Engagement.InteractionQuality,
		&hcp.Engagement.PrescriptionsGenerated,
		&hcp.Engagement.PrescriptionValue,
		&lastInteraction,
		&hcp.Active,
		&hcp.CreatedAt,
		&hcp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hcp %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hcp", err)
	}

	hcp.BuyerPersona = entities.BuyerPersona(buyerPersona)
	hcp.AdoptionStage = entities.AdoptionStage(adoptionStage)
	if lastInteraction.Valid {
		t := lastInteraction.Time
		hcp.Engagement.LastInteractionAt = &t
	}

	return hcp, nil
}

// GetRecentContacts returns up to n contacts, most recent first
func (a *HCPAdapter) GetRecentContacts(ctx context.Context, hcpID string, n int) ([]entities.Contact, error) {
	query, args, err := a.db.Select("id", "hcp_id", "type", "occurred_at", "outcome", "channel", "notes", "product_id").
		From("contacts").
		Where(goqu.Ex{"hcp_id": hcpID}).
		Order(goqu.C("occurred_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(n)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get contacts", err)
	}
	defer rows.Close()

	contacts := make([]entities.Contact, 0, n)
	for rows.Next() {
		var c entities.Contact
		var contactType, outcome, channel string
		var productID sql.NullString
		if err := rows.Scan(&c.ID, &c.HCPID, &contactType, &c.OccurredAt, &outcome, &channel, &c.Notes, &productID); err != nil {
			return nil, apperrors.NewInternalError("failed to scan contact", err)
		}
		c.Type = entities.ContactType(contactType)
		c.Outcome = entities.ContactOutcome(outcome)
		c.Channel = entities.Channel(channel)
		c.ProductID = productID.String
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// GetRecentPrescriptions returns up to n prescriptions, most recent first
func (a *HCPAdapter) GetRecentPrescriptions(ctx context.Context, hcpID string, n int) ([]entities.Prescription, error) {
	query, args, err := a.db.Select("id", "hcp_id", "product_id", "recommendation_id", "issued_at", "quantity", "kind", "value").
		From("prescriptions").
		Where(goqu.Ex{"hcp_id": hcpID}).
		Order(goqu.C("issued_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(n)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get prescriptions", err)
	}
	defer rows.Close()

	prescriptions := make([]entities.Prescription, 0, n)
	for rows.Next() {
		var p entities.Prescription
		var recommendationID sql.NullString
		var kind string
		if err := rows.Scan(&p.ID, &p.HCPID, &p.ProductID, &recommendationID, &p.IssuedAt, &p.Quantity, &kind, &p.Value); err != nil {
			return nil, apperrors.NewInternalError("failed to scan prescription", err)
		}
		p.RecommendationID = recommendationID.String
		p.Kind = entities.PrescriptionKind(kind)
		prescriptions = append(prescriptions, p)
	}

	return prescriptions, rows.Err()
}

// CountActiveHCPs counts HCPs flagged active
func (a *HCPAdapter) CountActiveHCPs(ctx context.Context) (int, error) {
	return a.count(ctx, a.db.From("hcps").Select(goqu.COUNT("*")).Where(goqu.Ex{"active": true}))
}

// CountContactsSince counts contacts across all HCPs at or after since
func (a *HCPAdapter) CountContactsSince(ctx context.Context, since time.Time) (int, error) {
	return a.count(ctx, a.db.From("contacts").Select(goqu.COUNT("*")).Where(goqu.C("occurred_at").Gte(since)))
}

// ListTopEngagedHCPs ranks active HCPs by interaction quality, then response rate
func (a *HCPAdapter) ListTopEngagedHCPs(ctx context.Context, n int) ([]entities.HCPRanking, error) {
	query, args, err := a.db.Select("id", "first_name", "last_name", "interaction_quality").
		From("hcps").
		Where(goqu.Ex{"active": true}).
		Order(goqu.C("interaction_quality").Desc(), goqu.C("response_rate").Desc(), goqu.C("id").Asc()).
		Limit(uint(n)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to rank hcps", err)
	}
	defer rows.Close()

	rankings := make([]entities.HCPRanking, 0, n)
	for rows.Next() {
		var id, first, last string
		var engagement float64
		if err := rows.Scan(&id, &first, &last, &engagement); err != nil {
			return nil, apperrors.NewInternalError("failed to scan hcp ranking", err)
		}
		name := entities.HCP{FirstName: first, LastName: last}.FullName()
		rankings = append(rankings, entities.HCPRanking{HCPID: id, Name: name, Engagement: engagement})
	}

	return rankings, rows.Err()
}

// AttributedTotals sums prescriptions attributed to completed recommendations
func (a *HCPAdapter) AttributedTotals(ctx context.Context) (int, float64, error) {
	query, args, err := a.db.From(goqu.T("prescriptions").As("p")).
		Join(goqu.T(recommendationsTable).As("r"), goqu.On(goqu.I("r.id").Eq(goqu.I("p.recommendation_id")))).
		Where(goqu.I("r.state").Eq(string(entities.RecommendationStateCompleted))).
		Select(goqu.COUNT("p.id"), goqu.COALESCE(goqu.SUM("p.value"), 0)).
		ToSQL()
	if err != nil {
		return 0, 0, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	var value float64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count, &value); err != nil {
		return 0, 0, apperrors.NewInternalError("failed to sum attributed prescriptions", err)
	}

	return count, value, nil
}

// TopProducts ranks products by prescriptions attributed to completed recommendations
func (a *HCPAdapter) TopProducts(ctx context.Context, n int) ([]entities.ProductRanking, error) {
	query, args, err := a.db.From(goqu.T("prescriptions").As("p")).
		Join(goqu.T(recommendationsTable).As("r"), goqu.On(goqu.I("r.id").Eq(goqu.I("p.recommendation_id")))).
		Join(goqu.T("products").As("pr"), goqu.On(goqu.I("pr.id").Eq(goqu.I("p.product_id")))).
		Where(goqu.I("r.state").Eq(string(entities.RecommendationStateCompleted))).
		GroupBy(goqu.I("pr.id"), goqu.I("pr.name")).
		Select(goqu.I("pr.id"), goqu.I("pr.name"), goqu.COUNT("p.id").As("prescriptions")).
		Order(goqu.C("prescriptions").Desc(), goqu.I("pr.id").Asc()).
		Limit(uint(n)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to rank products", err)
	}
	defer rows.Close()

	rankings := make([]entities.ProductRanking, 0, n)
	for rows.Next() {
		var r entities.ProductRanking
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.Prescriptions); err != nil {
			return nil, apperrors.NewInternalError("failed to scan product ranking", err)
		}
		rankings = append(rankings, r)
	}

	return rankings, rows.Err()
}

func (a *HCPAdapter) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var n int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.NewInternalError("failed to count rows", err)
	}
	return n, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

const recommendationsTable = "recommendations"

var recommendationColumns = []interface{}{
	"id", "seq", "hcp_id", "action_type", "priority", "channel", "ideal_moment",
	"message", "rationale", "products", "approved_content_ids", "restrictions", "reasons",
	"source", "score", "state", "state_reason", "outcome", "executed_at", "version",
	"created_at", "updated_at",
}

// RecommendationAdapter implements RecommendationRepository on PostgreSQL
type RecommendationAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewRecommendationAdapter creates a new recommendation adapter. metrics may be nil.
func NewRecommendationAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.RecommendationRepository {
	return &RecommendationAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

func (a *RecommendationAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create inserts the recommendation and reads back its sequence number
func (a *RecommendationAdapter) Create(ctx context.Context, rec *entities.Recommendation) error {
	defer a.observe(ctx, "recommendations.create", time.Now())
	return a.insert(ctx, a.client.DB(), rec)
}

// CreateBatch inserts recs in one transaction; any failure rolls the whole batch back
func (a *RecommendationAdapter) CreateBatch(ctx context.Context, recs []*entities.Recommendation) error {
	defer a.observe(ctx, "recommendations.create_batch", time.Now())

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin recommendation batch", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if err := a.insert(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit recommendation batch", err)
	}
	return nil
}

func (a *RecommendationAdapter) insert(ctx context.Context, q rowQuerier, rec *entities.Recommendation) error {
	record := goqu.Record{
		"id":                   rec.ID,
		"hcp_id":               rec.HCPID,
		"action_type":          string(rec.ActionType),
		"priority":             rec.Priority,
		"channel":              string(rec.Channel),
		"ideal_moment":         rec.IdealMoment,
		"message":              rec.Message,
		"rationale":            rec.Rationale,
		"products":             pq.Array(nonNilStrings(rec.Products)),
		"approved_content_ids": pq.Array(nonNilStrings(rec.ApprovedContentIDs)),
		"restrictions":         pq.Array(nonNilStrings(rec.Restrictions)),
		"reasons":              pq.Array(nonNilStrings(rec.Reasons)),
		"source":               string(rec.Source),
		"score":                rec.Score,
		"state":                string(rec.State),
		"state_reason":         rec.StateReason,
		"version":              rec.Version,
		"created_at":           rec.CreatedAt,
		"updated_at":           rec.UpdatedAt,
	}

	query, args, err := a.db.Insert(recommendationsTable).Rows(record).Returning("seq").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := q.QueryRowContext(ctx, query, args...).Scan(&rec.Seq); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.NewConflictError(fmt.Sprintf("recommendation %s already exists", rec.ID))
		}
		return apperrors.NewInternalError("failed to create recommendation", err)
	}

	return nil
}

// GetByID retrieves a recommendation by ID
func (a *RecommendationAdapter) GetByID(ctx context.Context, id string) (*entities.Recommendation, error) {
	defer a.observe(ctx, "recommendations.get", time.Now())

	query, args, err := a.db.Select(recommendationColumns...).
		From(recommendationsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rec, err := scanRecommendation(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recommendation %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get recommendation", err)
	}

	return rec, nil
}

// UpdateState applies the transition only while the row still holds the expected state and version
func (a *RecommendationAdapter) UpdateState(ctx context.Context, id string, expected entities.RecommendationState, update entities.StateUpdate) (*entities.Recommendation, error) {
	defer a.observe(ctx, "recommendations.update_state", time.Now())

	record := goqu.Record{
		"state":        string(update.NewState),
		"state_reason": update.Reason,
		"updated_at":   update.UpdatedAt,
		"version":      goqu.L("version + 1"),
	}
	if update.Outcome != nil {
		record["outcome"] = string(*update.Outcome)
	}
	if update.ExecutedAt != nil {
		record["executed_at"] = *update.ExecutedAt
	}

	query, args, err := a.db.Update(recommendationsTable).
		Set(record).
		Where(goqu.Ex{
			"id":      id,
			"state":   string(expected),
			"version": update.ExpectedVersion,
		}).
		Returning(recommendationColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	rec, err := scanRecommendation(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		current, getErr := a.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.NewInvalidTransitionError(fmt.Sprintf(
			"recommendation %s is %s, cannot move to %s", id, current.State, update.NewState))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update recommendation state", err)
	}

	return rec, nil
}

// Query lists recommendations matching filter in ranking order
func (a *RecommendationAdapter) Query(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.Recommendation, error) {
	defer a.observe(ctx, "recommendations.query", time.Now())

	ds := a.db.Select(recommendationColumns...).From(recommendationsTable)

	if filter.HCPID != "" {
		ds = ds.Where(goqu.C("hcp_id").Eq(filter.HCPID))
	}
	if filter.ActionType != "" {
		ds = ds.Where(goqu.C("action_type").Eq(string(filter.ActionType)))
	}
	if filter.Channel != "" {
		ds = ds.Where(goqu.C("channel").Eq(string(filter.Channel)))
	}
	if filter.State != "" {
		ds = ds.Where(goqu.C("state").Eq(string(filter.State)))
	}
	if filter.MinPriority > 0 {
		ds = ds.Where(goqu.C("priority").Gte(filter.MinPriority))
	}
	if filter.MaxPriority > 0 {
		ds = ds.Where(goqu.C("priority").Lte(filter.MaxPriority))
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*filter.To))
	}

	ds = ds.Order(goqu.C("priority").Desc(), goqu.C("score").Desc(), goqu.C("seq").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query recommendations", err)
	}
	defer rows.Close()

	recs := make([]*entities.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan recommendation", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate recommendations", err)
	}

	return recs, nil
}

// CountByState counts recommendations grouped by state and outcome
func (a *RecommendationAdapter) CountByState(ctx context.Context) ([]repositories.StateCount, error) {
	defer a.observe(ctx, "recommendations.count_by_state", time.Now())

	query, args, err := a.db.From(recommendationsTable).
		Select(
			goqu.C("state"),
			goqu.COALESCE(goqu.C("outcome"), "").As("outcome"),
			goqu.COUNT("*").As("count"),
		).
		GroupBy(goqu.C("state"), goqu.C("outcome")).
		Order(goqu.C("state").Asc(), goqu.C("outcome").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count recommendations", err)
	}
	defer rows.Close()

	counts := make([]repositories.StateCount, 0)
	for rows.Next() {
		var state, outcome string
		var n int
		if err := rows.Scan(&state, &outcome, &n); err != nil {
			return nil, apperrors.NewInternalError("failed to scan recommendation count", err)
		}
		counts = append(counts, repositories.StateCount{
			State:   entities.RecommendationState(state),
			Outcome: entities.RecommendationOutcome(outcome),
			Count:   n,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate recommendation counts", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(row rowScanner) (*entities.Recommendation, error) {
	rec := &entities.Recommendation{}
	var (
		actionType, channel, source, state string
		outcome                            sql.NullString
		executedAt                         sql.NullTime
	)

	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.HCPID,
		&actionType,
		&rec.Priority,
		&channel,
		&rec.IdealMoment,
		&rec.Message,
		&rec.Rationale,
		pq.Array(&rec.Products),
		pq.Array(&rec.ApprovedContentIDs),
		pq.Array(&rec.Restrictions),
		pq.Array(&rec.Reasons),
		&source,
		&rec.Score,
		&state,
		&rec.StateReason,
		&outcome,
		&executedAt,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ActionType = entities.ActionType(actionType)
	rec.Channel = entities.Channel(channel)
	rec.Source = entities.RecommendationSource(source)
	rec.State = entities.RecommendationState(state)
	if outcome.Valid {
		o := entities.RecommendationOutcome(outcome.String)
		rec.Outcome = &o
	}
	if executedAt.Valid {
		t := executedAt.Time
		rec.ExecutedAt = &t
	}

	return rec, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

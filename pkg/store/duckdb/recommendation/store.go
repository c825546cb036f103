package recommendation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
)

// AggregateQuery is the one query shape the metrics layer needs:
// count/sum over recommendations, optionally grouped, scoped to a client
// and/or a time window.
type AggregateQuery struct {
	ClientID string    // empty means all clients
	Start    time.Time // zero means unbounded
	End      time.Time
	GroupBy  string // "", "category" or "impact"
}

type Store interface {
	BulkCreate(ctx context.Context, recommendations []store.Recommendation) error
	GetByReport(ctx context.Context, reportID string) ([]store.Recommendation, error)
	Aggregate(ctx context.Context, query AggregateQuery) ([]store.CategoryAggregate, error)
}

type recommendationStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &recommendationStore{db: db}, nil
}

func (s *recommendationStore) BulkCreate(ctx context.Context, recommendations []store.Recommendation) error {
	if len(recommendations) == 0 {
		return nil
	}

	tx := duckdb.GetTransaction(ctx)
	query := `
		INSERT INTO recommendations (
			id, report_id, category, impact, text, resource,
			estimated_savings, currency, extras, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var stmt *sql.Stmt
	var err error
	if tx == nil {
		stmt, err = s.db.PrepareContext(ctx, query)
	} else {
		stmt, err = tx.PrepareContext(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range recommendations {
		extras, err := json.Marshal(rec.Extras)
		if err != nil {
			return fmt.Errorf("marshal extras: %w", err)
		}
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err = stmt.ExecContext(ctx,
			rec.ID,
			rec.ReportID,
			rec.Category,
			rec.Impact,
			rec.Text,
			rec.Resource,
			rec.EstimatedSavings,
			rec.Currency,
			extras,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}
	return nil
}

func (s *recommendationStore) GetByReport(ctx context.Context, reportID string) ([]store.Recommendation, error) {
	query := `
		SELECT id, report_id, category, impact, text, resource, estimated_savings, currency, extras, created_at
		FROM recommendations
		WHERE report_id = ?
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()
	return scanRecommendationRows(rows)
}

func (s *recommendationStore) Aggregate(ctx context.Context, q AggregateQuery) ([]store.CategoryAggregate, error) {
	groupExpr := "''"
	switch q.GroupBy {
	case "":
	case "category":
		groupExpr = "rec.category"
	case "impact":
		groupExpr = "rec.impact"
	default:
		return nil, fmt.Errorf("unsupported group by field: %s", q.GroupBy)
	}

	query := fmt.Sprintf(`
		SELECT %s AS key, COUNT(*) AS cnt, COALESCE(SUM(rec.estimated_savings), 0) AS savings
		FROM recommendations rec
		JOIN reports r ON r.id = rec.report_id
		WHERE (? = '' OR r.client_id = ?)
		  AND (? OR rec.created_at >= ?)
		  AND (? OR rec.created_at < ?)
		GROUP BY 1
		ORDER BY cnt DESC`, groupExpr)

	rows, err := s.db.QueryContext(ctx, query,
		q.ClientID, q.ClientID,
		q.Start.IsZero(), q.Start,
		q.End.IsZero(), q.End,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate recommendations: %w", err)
	}
	defer rows.Close()

	var aggregates []store.CategoryAggregate
	for rows.Next() {
		var a store.CategoryAggregate
		if err := rows.Scan(&a.Key, &a.Count, &a.Savings); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

func scanRecommendationRows(rows *sql.Rows) ([]store.Recommendation, error) {
	records := make([]store.Recommendation, 0)
	for rows.Next() {
		var (
			rec       store.Recommendation
			savings   sql.NullFloat64
			extrasRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ReportID, &rec.Category, &rec.Impact, &rec.Text,
			&rec.Resource, &savings, &rec.Currency, &extrasRaw, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if savings.Valid {
			v := savings.Float64
			rec.EstimatedSavings = &v
		}
		if len(extrasRaw) > 0 {
			extras := map[string]string{}
			_ = json.Unmarshal(extrasRaw, &extras)
			if len(extras) > 0 {
				rec.Extras = extras
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

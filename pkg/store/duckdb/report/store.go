package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
)

// ErrConflict is returned when a guarded update matched no row: either the
// report does not exist or another writer already moved it past the
// expected state.
var ErrConflict = errors.New("report state conflict")

var ErrNotFound = errors.New("report not found")

type Store interface {
	Create(ctx context.Context, report store.Report) error
	Get(ctx context.Context, id string) (*store.Report, error)
	// Transition moves a report from one status to another. The from guard
	// makes transitions monotonic: a row already past from is left alone
	// and ErrConflict is returned.
	Transition(ctx context.Context, id, from, to string, failureReason *string) error
	// Complete transitions processing -> completed and attaches artifact
	// references in the same statement, so artifacts only ever exist on
	// completed reports.
	Complete(ctx context.Context, id, htmlPath, pdfPath string) error
	ListRecent(ctx context.Context, limit int) ([]store.Report, error)
	PeriodAggregate(ctx context.Context, clientID string, start, end time.Time) (*store.PeriodAggregate, error)
	DailyAggregates(ctx context.Context, clientID string, start, end time.Time) ([]store.DailyAggregate, error)
}

type reportStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &reportStore{db: db}, nil
}

func (s *reportStore) Create(ctx context.Context, report store.Report) error {
	query := `
		INSERT INTO reports (id, client_id, type, status, source_file, html_path, pdf_path, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', '', NULL, ?, ?)`

	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}

	tx := duckdb.GetTransaction(ctx)
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query,
			report.ID, report.ClientID, report.Type, report.Status, report.SourceFile, report.CreatedAt, report.CreatedAt)
	} else {
		_, err = s.db.ExecContext(ctx, query,
			report.ID, report.ClientID, report.Type, report.Status, report.SourceFile, report.CreatedAt, report.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *reportStore) Get(ctx context.Context, id string) (*store.Report, error) {
	query := `
		SELECT id, client_id, type, status, source_file, html_path, pdf_path, failure_reason, created_at, updated_at
		FROM reports WHERE id = ?`

	var r store.Report
	var reason sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.ClientID, &r.Type, &r.Status, &r.SourceFile,
		&r.HTMLPath, &r.PDFPath, &reason, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if reason.Valid {
		r.FailureReason = &reason.String
	}
	return &r, nil
}

func (s *reportStore) Transition(ctx context.Context, id, from, to string, failureReason *string) error {
	query := `
		UPDATE reports
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query, to, failureReason, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("transition report %s to %s: %w", id, to, err)
	}
	return guardAffected(result)
}

func (s *reportStore) Complete(ctx context.Context, id, htmlPath, pdfPath string) error {
	query := `
		UPDATE reports
		SET status = 'completed', html_path = ?, pdf_path = ?, failure_reason = NULL, updated_at = ?
		WHERE id = ? AND status = 'processing'`

	result, err := s.db.ExecContext(ctx, query, htmlPath, pdfPath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("complete report %s: %w", id, err)
	}
	return guardAffected(result)
}

func (s *reportStore) ListRecent(ctx context.Context, limit int) ([]store.Report, error) {
	query := `
		SELECT id, client_id, type, status, source_file, html_path, pdf_path, failure_reason, created_at, updated_at
		FROM reports
		ORDER BY updated_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	defer rows.Close()

	reports := make([]store.Report, 0, limit)
	for rows.Next() {
		var r store.Report
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Type, &r.Status, &r.SourceFile,
			&r.HTMLPath, &r.PDFPath, &reason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			r.FailureReason = &reason.String
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *reportStore) PeriodAggregate(ctx context.Context, clientID string, start, end time.Time) (*store.PeriodAggregate, error) {
	query := `
		SELECT
			COUNT(*) AS reports,
			COUNT(*) FILTER (WHERE r.status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE r.status = 'failed') AS failed,
			(SELECT COUNT(*) FROM recommendations rec
				JOIN reports rr ON rr.id = rec.report_id
				WHERE rr.created_at >= ? AND rr.created_at < ? AND (? = '' OR rr.client_id = ?)) AS recommendations,
			COALESCE((SELECT SUM(rec.estimated_savings) FROM recommendations rec
				JOIN reports rr ON rr.id = rec.report_id
				WHERE rr.created_at >= ? AND rr.created_at < ? AND (? = '' OR rr.client_id = ?)), 0) AS savings
		FROM reports r
		WHERE r.created_at >= ? AND r.created_at < ? AND (? = '' OR r.client_id = ?)`

	var agg store.PeriodAggregate
	err := s.db.QueryRowContext(ctx, query,
		start, end, clientID, clientID,
		start, end, clientID, clientID,
		start, end, clientID, clientID,
	).Scan(&agg.Reports, &agg.Completed, &agg.Failed, &agg.Recommendations, &agg.Savings)
	if err != nil {
		return nil, fmt.Errorf("period aggregate: %w", err)
	}
	return &agg, nil
}

func (s *reportStore) DailyAggregates(ctx context.Context, clientID string, start, end time.Time) ([]store.DailyAggregate, error) {
	query := `
		SELECT
			date_trunc('day', r.created_at) AS day,
			COUNT(DISTINCT r.id) AS reports,
			COALESCE(SUM(rec.estimated_savings), 0) AS savings
		FROM reports r
		LEFT JOIN recommendations rec ON rec.report_id = r.id
		WHERE r.created_at >= ? AND r.created_at < ? AND (? = '' OR r.client_id = ?)
		GROUP BY 1
		ORDER BY 1`

	rows, err := s.db.QueryContext(ctx, query, start, end, clientID, clientID)
	if err != nil {
		return nil, fmt.Errorf("daily aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []store.DailyAggregate
	for rows.Next() {
		var a store.DailyAggregate
		if err := rows.Scan(&a.Date, &a.Reports, &a.Savings); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

func guardAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

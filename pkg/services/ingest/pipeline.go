package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/adapters"
	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/services/cache"
	"github.com/cloudlens/advisor/pkg/services/jobs"
	"github.com/cloudlens/advisor/pkg/services/upload"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
)

// Pipeline is the ingestion facade: accept an advisor export, persist it as
// a pending report, and hand generation off to the orchestrator.
type Pipeline struct {
	db              *sql.DB
	validator       *upload.Validator
	parser          *upload.Parser
	reports         reportstore.Store
	recommendations recstore.Store
	orchestrator    *jobs.Orchestrator
	cache           *cache.Manager
}

func NewPipeline(
	db *sql.DB,
	validator *upload.Validator,
	parser *upload.Parser,
	reports reportstore.Store,
	recommendations recstore.Store,
	orchestrator *jobs.Orchestrator,
	cacheManager *cache.Manager,
) *Pipeline {
	return &Pipeline{
		db:              db,
		validator:       validator,
		parser:          parser,
		reports:         reports,
		recommendations: recommendations,
		orchestrator:    orchestrator,
		cache:           cacheManager,
	}
}

// Submission is the result of accepting an export into the store.
type Submission struct {
	Report          domain.Report
	Recommendations int
}

// SubmitCSV validates and parses an uploaded export, then persists the
// report and its recommendations atomically. The returned report is in the
// pending state; generation does not start until requested.
func (p *Pipeline) SubmitCSV(
	ctx context.Context,
	clientID string,
	reportType domain.ReportType,
	filename string,
	fileBytes []byte,
) (*Submission, error) {
	if err := checkSubmission(clientID, reportType); err != nil {
		return nil, err
	}

	result := p.validator.Validate(fileBytes, filename)
	if !result.OK {
		return nil, result.Err
	}

	drafts, err := p.parser.Parse(result)
	if err != nil {
		return nil, err
	}

	submission, err := p.persist(ctx, clientID, reportType, filename, drafts)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("report_id", submission.Report.ID).
		Str("client_id", clientID).
		Int("recommendations", len(drafts)).
		Str("encoding", result.Encoding).
		Msg("export accepted")
	return submission, nil
}

// SubmitDrafts persists recommendations pulled from a provider connector,
// bypassing CSV validation. The source name takes the place of a filename.
func (p *Pipeline) SubmitDrafts(
	ctx context.Context,
	clientID string,
	reportType domain.ReportType,
	sourceName string,
	drafts []domain.RecommendationDraft,
) (*Submission, error) {
	if err := checkSubmission(clientID, reportType); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no recommendations to submit")
	}

	submission, err := p.persist(ctx, clientID, reportType, sourceName, drafts)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("report_id", submission.Report.ID).
		Str("client_id", clientID).
		Str("source", sourceName).
		Int("recommendations", len(drafts)).
		Msg("connector drafts accepted")
	return submission, nil
}

// RequestGeneration schedules asynchronous generation for a submitted
// report. Repeat requests while a run is in flight return the same handle.
func (p *Pipeline) RequestGeneration(ctx context.Context, reportID string) (*jobs.Handle, error) {
	return p.orchestrator.Enqueue(ctx, reportID)
}

// GetReportStatus reads the report fresh from the store. Status moves
// through the pipeline quickly, so this read is deliberately uncached.
func (p *Pipeline) GetReportStatus(ctx context.Context, reportID string) (*domain.Report, error) {
	stored, err := p.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report := adapters.MapStoreReportToDomain(*stored)
	return &report, nil
}

func checkSubmission(clientID string, reportType domain.ReportType) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	if !reportType.Valid() {
		return fmt.Errorf("unknown report type: %s", reportType)
	}
	return nil
}

func (p *Pipeline) persist(
	ctx context.Context,
	clientID string,
	reportType domain.ReportType,
	sourceFile string,
	drafts []domain.RecommendationDraft,
) (*Submission, error) {
	now := time.Now().UTC()
	storedReport := store.Report{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		Type:       string(reportType),
		Status:     string(domain.ReportStatusPending),
		SourceFile: sourceFile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	recommendations := make([]store.Recommendation, 0, len(drafts))
	for _, draft := range drafts {
		recommendations = append(recommendations,
			adapters.MapDraftToStoreRecommendation(storedReport.ID, uuid.NewString(), draft))
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := duckdb.WithTransaction(ctx, tx)

	if err := p.reports.Create(txCtx, storedReport); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := p.recommendations.BulkCreate(txCtx, recommendations); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	if p.cache != nil {
		p.cache.Invalidate(ctx, clientID)
		p.cache.Invalidate(ctx, "global")
	}

	return &Submission{
		Report:          adapters.MapStoreReportToDomain(storedReport),
		Recommendations: len(recommendations),
	}, nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/adapters"
	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/services/cache"
	"github.com/cloudlens/advisor/pkg/services/render"
	reportgen "github.com/cloudlens/advisor/pkg/services/report"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"
)

var (
	// ErrAlreadyRunning is returned when the report is marked processing in
	// the store and its last update is recent enough to trust.
	ErrAlreadyRunning = errors.New("generation already running")
	ErrQueueFull      = errors.New("generation queue is full")
)

// Renderer is the artifact production step; see pkg/services/render for
// the real implementation.
type Renderer interface {
	Render(ctx context.Context, doc domain.Document) (*render.Artifacts, error)
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	// BaseBackoff doubles after each failed attempt.
	BaseBackoff time.Duration
	JobTimeout  time.Duration
	// StaleAfter is how long a processing report may go without an update
	// before it is considered abandoned and eligible for re-enqueue.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   64,
		MaxAttempts: 3,
		BaseBackoff: 2 * time.Second,
		JobTimeout:  2 * time.Minute,
		StaleAfter:  10 * time.Minute,
	}
}

// Handle tracks one enqueued generation. Err is valid once Done is closed.
type Handle struct {
	ReportID string

	done chan struct{}
	err  error
}

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type job struct {
	report *store.Report
	from   domain.ReportStatus
	handle *Handle
}

// Orchestrator owns the asynchronous generation pipeline: it accepts
// requests, deduplicates them, and drives each one through the status
// machine on a fixed worker pool.
type Orchestrator struct {
	reports         reportstore.Store
	recommendations recstore.Store
	registry        reportgen.Registry
	renderer        Renderer
	cache           *cache.Manager
	config          Config

	queue chan job
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*Handle
}

func NewOrchestrator(
	reports reportstore.Store,
	recommendations recstore.Store,
	registry reportgen.Registry,
	renderer Renderer,
	cacheManager *cache.Manager,
	config Config,
) *Orchestrator {
	if config.Workers <= 0 {
		config = DefaultConfig()
	}
	return &Orchestrator{
		reports:         reports,
		recommendations: recommendations,
		registry:        registry,
		renderer:        renderer,
		cache:           cacheManager,
		config:          config,
		queue:           make(chan job, config.QueueSize),
		inflight:        make(map[string]*Handle),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.config.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx)
	}
}

// Shutdown waits for in-flight jobs to drain or ctx to expire. Queued jobs
// that no worker picked up before cancellation stay pending in the store.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue schedules generation for a report. A second request for a report
// already in flight returns the existing handle instead of a new job, so
// callers can always wait on the returned handle.
func (o *Orchestrator) Enqueue(ctx context.Context, reportID string) (*Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.inflight[reportID]; ok {
		return existing, nil
	}

	stored, err := o.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	from := domain.ReportStatus(stored.Status)
	if from == domain.ReportStatusProcessing {
		if time.Since(stored.UpdatedAt) < o.config.StaleAfter {
			return nil, ErrAlreadyRunning
		}
		// Abandoned by a crashed worker; reclaim it.
		zerolog.Ctx(ctx).Warn().
			Str("report_id", reportID).
			Time("updated_at", stored.UpdatedAt).
			Msg("reclaiming stalled report")
	}

	handle := &Handle{ReportID: reportID, done: make(chan struct{})}
	select {
	case o.queue <- job{report: stored, from: from, handle: handle}:
	default:
		return nil, ErrQueueFull
	}

	o.inflight[reportID] = handle
	return handle, nil
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-o.queue:
			o.run(ctx, j)
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, j job) {
	jobCtx, cancel := context.WithTimeout(ctx, o.config.JobTimeout)
	defer cancel()

	// Status writes must land even when the job deadline has expired, so
	// they run on a context detached from the timeout.
	err := o.process(jobCtx, context.WithoutCancel(ctx), j)

	o.mu.Lock()
	delete(o.inflight, j.report.ID)
	o.mu.Unlock()

	j.handle.err = err
	close(j.handle.done)
}

func (o *Orchestrator) process(ctx, statusCtx context.Context, j job) error {
	logger := zerolog.Ctx(ctx).With().
		Str("report_id", j.report.ID).
		Str("report_type", j.report.Type).
		Logger()
	ctx = logger.WithContext(ctx)
	statusCtx = logger.WithContext(statusCtx)

	err := o.reports.Transition(statusCtx, j.report.ID, string(j.from), string(domain.ReportStatusProcessing), nil)
	if err != nil {
		if errors.Is(err, reportstore.ErrConflict) {
			// Another worker or instance claimed it since Enqueue looked.
			logger.Info().Msg("report claimed elsewhere, skipping")
			return ErrAlreadyRunning
		}
		return err
	}

	artifacts, genErr := o.generateWithRetry(ctx, j.report)
	if genErr != nil {
		reason := genErr.Error()
		if err := o.reports.Transition(statusCtx, j.report.ID,
			string(domain.ReportStatusProcessing), string(domain.ReportStatusFailed), &reason); err != nil {
			logger.Error().Err(err).Msg("failed to mark report failed")
		}
		o.invalidate(statusCtx, j.report.ClientID)
		logger.Error().Err(genErr).Msg("report generation failed")
		return genErr
	}

	if err := o.reports.Complete(statusCtx, j.report.ID, artifacts.HTMLPath, artifacts.PDFPath); err != nil {
		return err
	}
	o.invalidate(statusCtx, j.report.ClientID)
	logger.Info().Str("pdf", artifacts.PDFPath).Msg("report generated")
	return nil
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, r *store.Report) (*render.Artifacts, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		artifacts, err := o.generate(ctx, r)
		if err == nil {
			return artifacts, nil
		}
		lastErr = err
		zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Msg("generation attempt failed")

		if attempt == o.config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(o.config.BaseBackoff, attempt)):
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", o.config.MaxAttempts, lastErr)
}

func (o *Orchestrator) generate(ctx context.Context, r *store.Report) (*render.Artifacts, error) {
	stored, err := o.recommendations.GetByReport(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	recommendations := make([]domain.Recommendation, 0, len(stored))
	for _, rec := range stored {
		recommendations = append(recommendations, adapters.MapStoreRecommendationToDomain(rec))
	}

	strategy, err := o.registry.Create(domain.ReportType(r.Type))
	if err != nil {
		return nil, err
	}

	doc := strategy.Build(reportgen.BuildContext(adapters.MapStoreReportToDomain(*r), recommendations))
	return o.renderer.Render(ctx, doc)
}

// invalidate purges cached reads for the client and the cross-client
// dashboard views after any terminal transition.
func (o *Orchestrator) invalidate(ctx context.Context, clientID string) {
	if o.cache == nil {
		return
	}
	o.cache.Invalidate(ctx, clientID)
	o.cache.Invalidate(ctx, "global")
}

// backoff is a pure function of the attempt number: base, 2*base, 4*base.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

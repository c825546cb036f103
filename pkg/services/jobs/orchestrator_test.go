package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/services/cache"
	"github.com/cloudlens/advisor/pkg/services/render"
	reportgen "github.com/cloudlens/advisor/pkg/services/report"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
)

type fakeRenderer struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
}

func (f *fakeRenderer) Render(_ context.Context, doc domain.Document) (*render.Artifacts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("renderer unavailable")
	}
	return &render.Artifacts{
		HTMLPath: fmt.Sprintf("reports/%s/%s.html", doc.ReportID, doc.Type),
		PDFPath:  fmt.Sprintf("reports/%s/%s.pdf", doc.ReportID, doc.Type),
	}, nil
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type trackingBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func (b *trackingBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return value, nil
}

func (b *trackingBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = value
	return nil
}

func (b *trackingBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, prefix)
	return nil
}

func (b *trackingBackend) deletedPrefixes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

type fixture struct {
	db              *sql.DB
	reports         reportstore.Store
	recommendations recstore.Store
	renderer        *fakeRenderer
	backend         *trackingBackend
	orchestrator    *Orchestrator
}

func setupFixture(t *testing.T, config Config) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reports, err := reportstore.NewStore(db)
	require.NoError(t, err)
	recommendations, err := recstore.NewStore(db)
	require.NoError(t, err)

	renderer := &fakeRenderer{}
	backend := &trackingBackend{entries: map[string][]byte{}}
	manager := cache.NewManager(backend, cache.DefaultTTLConfig())

	orchestrator := NewOrchestrator(
		reports, recommendations, reportgen.NewRegistry(reportgen.DefaultConfig()),
		renderer, manager, config,
	)

	return &fixture{
		db:              db,
		reports:         reports,
		recommendations: recommendations,
		renderer:        renderer,
		backend:         backend,
		orchestrator:    orchestrator,
	}
}

func testConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   8,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		JobTimeout:  5 * time.Second,
		StaleAfter:  10 * time.Minute,
	}
}

func (f *fixture) seedReport(t *testing.T, id, status string) {
	t.Helper()
	savings := 120.0
	require.NoError(t, f.reports.Create(context.Background(), store.Report{
		ID:         id,
		ClientID:   "acme",
		Type:       "cost",
		Status:     "pending",
		SourceFile: "export.csv",
		CreatedAt:  time.Now().UTC(),
	}))
	if status != "pending" {
		require.NoError(t, f.reports.Transition(context.Background(), id, "pending", status, nil))
	}
	require.NoError(t, f.recommendations.BulkCreate(context.Background(), []store.Recommendation{{
		ID:               id + "-rec1",
		ReportID:         id,
		Category:         "cost",
		Impact:           "high",
		Text:             "Resize VM",
		Resource:         "vm-1",
		EstimatedSavings: &savings,
		Currency:         "USD",
		CreatedAt:        time.Now().UTC(),
	}}))
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func TestOrchestrator_CompletesReport(t *testing.T) {
	f := setupFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")

	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, handle.Err())

	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "reports/r1/cost.html", got.HTMLPath)
	assert.Equal(t, "reports/r1/cost.pdf", got.PDFPath)
	assert.Nil(t, got.FailureReason)
}

func TestOrchestrator_RetriesBeforeSucceeding(t *testing.T) {
	f := setupFixture(t, testConfig())
	f.renderer.failures = 2
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")

	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, handle.Err())
	assert.Equal(t, 3, f.renderer.callCount())

	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}

func TestOrchestrator_MarksFailedAfterExhaustedAttempts(t *testing.T) {
	f := setupFixture(t, testConfig())
	f.renderer.failures = 100
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")

	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	assert.ErrorContains(t, handle.Err(), "after 3 attempts")
	assert.Equal(t, 3, f.renderer.callCount())

	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "renderer unavailable")
}

// blockingRenderer never returns until the job context expires.
type blockingRenderer struct{}

func (blockingRenderer) Render(ctx context.Context, _ domain.Document) (*render.Artifacts, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestOrchestrator_MarksTimedOutJobFailed(t *testing.T) {
	config := testConfig()
	config.MaxAttempts = 1
	config.JobTimeout = 50 * time.Millisecond
	f := setupFixture(t, config)
	f.orchestrator.renderer = blockingRenderer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")

	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	assert.ErrorIs(t, handle.Err(), context.DeadlineExceeded)

	// The expired job deadline must not block the terminal status write.
	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "deadline exceeded")

	prefixes := f.backend.deletedPrefixes()
	assert.Contains(t, prefixes, "advisor:acme:")
}

func TestOrchestrator_DeduplicatesInflight(t *testing.T) {
	f := setupFixture(t, testConfig())
	ctx := context.Background()
	// Workers not started, so the job stays queued and in flight.
	f.seedReport(t, "r1", "pending")

	first, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	second, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestOrchestrator_RejectsRecentProcessing(t *testing.T) {
	f := setupFixture(t, testConfig())
	ctx := context.Background()
	f.seedReport(t, "r1", "processing")

	_, err := f.orchestrator.Enqueue(ctx, "r1")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestOrchestrator_ReclaimsStalledProcessing(t *testing.T) {
	config := testConfig()
	config.StaleAfter = time.Nanosecond
	f := setupFixture(t, config)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "processing")
	time.Sleep(10 * time.Millisecond)

	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, handle.Err())

	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}

func TestOrchestrator_RegeneratesCompletedReport(t *testing.T) {
	f := setupFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")
	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, handle.Err())

	handle, err = f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, handle.Err())

	got, err := f.reports.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "reports/r1/cost.html", got.HTMLPath)
	assert.Equal(t, 2, f.renderer.callCount())
}

func TestOrchestrator_InvalidatesCacheOnCompletion(t *testing.T) {
	f := setupFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orchestrator.Start(ctx)

	f.seedReport(t, "r1", "pending")
	handle, err := f.orchestrator.Enqueue(ctx, "r1")
	require.NoError(t, err)
	waitDone(t, handle)

	prefixes := f.backend.deletedPrefixes()
	assert.Contains(t, prefixes, "advisor:acme:")
	assert.Contains(t, prefixes, "advisor:global:")
}

func TestOrchestrator_EnqueueUnknownReport(t *testing.T) {
	f := setupFixture(t, testConfig())

	_, err := f.orchestrator.Enqueue(context.Background(), "missing")
	assert.ErrorIs(t, err, reportstore.ErrNotFound)
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, backoff(base, 1))
	assert.Equal(t, 4*time.Second, backoff(base, 2))
	assert.Equal(t, 8*time.Second, backoff(base, 3))
}

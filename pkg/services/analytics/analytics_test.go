package analytics

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/models/store"
	"github.com/cloudlens/advisor/pkg/services/cache"
	"github.com/cloudlens/advisor/pkg/store/duckdb"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
)

type countingBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func (b *countingBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return value, nil
}

func (b *countingBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = value
	b.sets++
	return nil
}

func (b *countingBackend) DeleteByPrefix(_ context.Context, _ string) error { return nil }

type fixture struct {
	db              *sql.DB
	reports         reportstore.Store
	recommendations recstore.Store
	backend         *countingBackend
	aggregator      Aggregator
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reports, err := reportstore.NewStore(db)
	require.NoError(t, err)
	recommendations, err := recstore.NewStore(db)
	require.NoError(t, err)

	backend := &countingBackend{entries: map[string][]byte{}}
	manager := cache.NewManager(backend, cache.DefaultTTLConfig())

	return &fixture{
		db:              db,
		reports:         reports,
		recommendations: recommendations,
		backend:         backend,
		aggregator:      NewAggregator(reports, recommendations, manager, DefaultConfig()),
	}
}

func (f *fixture) seedCompletedReport(t *testing.T, id, clientID string, createdAt time.Time, recs []store.Recommendation) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.reports.Create(ctx, store.Report{
		ID:         id,
		ClientID:   clientID,
		Type:       "detailed",
		Status:     "pending",
		SourceFile: "export.csv",
		CreatedAt:  createdAt,
	}))
	require.NoError(t, f.reports.Transition(ctx, id, "pending", "processing", nil))
	require.NoError(t, f.reports.Complete(ctx, id, "reports/"+id+"/detailed.html", "reports/"+id+"/detailed.pdf"))
	for i := range recs {
		recs[i].ReportID = id
	}
	require.NoError(t, f.recommendations.BulkCreate(ctx, recs))
}

func savingsRec(id, category, impact string, savings float64) store.Recommendation {
	return store.Recommendation{
		ID:               id,
		Category:         category,
		Impact:           impact,
		Text:             "finding",
		Resource:         "res-" + id,
		EstimatedSavings: &savings,
		Currency:         "USD",
		CreatedAt:        time.Now().UTC(),
	}
}

func TestAggregator_DashboardMetrics(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCompletedReport(t, "r1", "acme", now.Add(-24*time.Hour), []store.Recommendation{
		savingsRec("a", "cost", "high", 100),
		savingsRec("b", "security", "low", 50),
	})
	// Previous comparison period.
	f.seedCompletedReport(t, "r0", "acme", now.Add(-45*24*time.Hour), []store.Recommendation{
		savingsRec("c", "cost", "medium", 300),
	})

	metrics, err := f.aggregator.DashboardMetrics(ctx, "acme")
	require.NoError(t, err)

	assert.Equal(t, int64(1), metrics.TotalReports)
	assert.Equal(t, int64(1), metrics.CompletedReports)
	assert.Equal(t, int64(2), metrics.TotalRecommendations)
	assert.InDelta(t, 150, metrics.TotalSavings, 0.01)
	assert.InDelta(t, 0, metrics.ReportsChangePct, 0.01)          // 1 vs 1
	assert.InDelta(t, -50, metrics.SavingsChangePct, 0.01)        // 150 vs 300
}

func TestAggregator_DashboardMetricsSentinels(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("nothing in either period", func(t *testing.T) {
		metrics, err := f.aggregator.DashboardMetrics(ctx, "empty-client")
		require.NoError(t, err)
		assert.Zero(t, metrics.ReportsChangePct)
		assert.Zero(t, metrics.SavingsChangePct)
	})

	t.Run("activity only in the current period", func(t *testing.T) {
		f.seedCompletedReport(t, "r1", "fresh-client", time.Now().UTC().Add(-time.Hour), []store.Recommendation{
			savingsRec("a", "cost", "high", 10),
		})
		metrics, err := f.aggregator.DashboardMetrics(ctx, "fresh-client")
		require.NoError(t, err)
		assert.Equal(t, domain.PercentChangeNew, metrics.ReportsChangePct)
		assert.Equal(t, domain.PercentChangeNew, metrics.SavingsChangePct)
	})
}

func TestAggregator_DashboardMetricsCached(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.seedCompletedReport(t, "r1", "acme", time.Now().UTC().Add(-time.Hour), []store.Recommendation{
		savingsRec("a", "cost", "high", 100),
	})

	first, err := f.aggregator.DashboardMetrics(ctx, "acme")
	require.NoError(t, err)
	setsAfterFirst := f.backend.sets

	second, err := f.aggregator.DashboardMetrics(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, setsAfterFirst, f.backend.sets, "second call should hit the cache")
	assert.Equal(t, first.TotalSavings, second.TotalSavings)
}

func TestAggregator_CategoryDistribution(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.seedCompletedReport(t, "r1", "acme", time.Now().UTC(), []store.Recommendation{
		savingsRec("a", "cost", "high", 100),
		savingsRec("b", "cost", "medium", 20),
		savingsRec("c", "security", "high", 0),
	})

	slices, err := f.aggregator.CategoryDistribution(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, slices, 2)

	assert.Equal(t, domain.CategoryCost, slices[0].Category)
	assert.Equal(t, int64(2), slices[0].Count)
	assert.InDelta(t, 120, slices[0].Savings, 0.01)
	assert.Equal(t, domain.CategorySecurity, slices[1].Category)
}

func TestAggregator_Trend(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	f.seedCompletedReport(t, "r1", "acme", now.Add(-48*time.Hour), []store.Recommendation{
		savingsRec("a", "cost", "high", 100),
	})
	f.seedCompletedReport(t, "r2", "acme", now.Add(-24*time.Hour), []store.Recommendation{
		savingsRec("b", "cost", "high", 40),
	})

	points, err := f.aggregator.Trend(ctx, "acme", 7)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.Equal(t, int64(1), points[0].Reports)
}

func TestAggregator_RecentActivity(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	f.seedCompletedReport(t, "r1", "acme", now.Add(-2*time.Hour), nil)
	f.seedCompletedReport(t, "r2", "globex", now.Add(-time.Hour), nil)

	entries, err := f.aggregator.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, domain.ReportStatusCompleted, entry.Status)
	}
}

func TestAggregator_ClientPerformance(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.seedCompletedReport(t, "r1", "acme", time.Now().UTC(), []store.Recommendation{
		savingsRec("a", "cost", "high", 100),
		savingsRec("b", "security", "high", 0),
		savingsRec("c", "reliability", "low", 5),
	})

	performance, err := f.aggregator.ClientPerformance(ctx, "acme")
	require.NoError(t, err)

	assert.Equal(t, int64(1), performance.Reports)
	assert.Equal(t, int64(3), performance.Recommendations)
	assert.InDelta(t, 105, performance.TotalSavings, 0.01)
	assert.Equal(t, int64(2), performance.ImpactDistribution[domain.ImpactHigh])
	assert.Equal(t, int64(1), performance.ImpactDistribution[domain.ImpactLow])

	_, err = f.aggregator.ClientPerformance(ctx, "")
	assert.Error(t, err)
}

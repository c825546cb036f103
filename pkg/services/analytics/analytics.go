package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/services/cache"
	recstore "github.com/cloudlens/advisor/pkg/store/duckdb/recommendation"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
)

// Aggregator serves the dashboard read models. Every call goes through the
// read-through cache; the stores are only hit on a miss.
type Aggregator interface {
	DashboardMetrics(ctx context.Context, clientID string) (*domain.DashboardMetrics, error)
	CategoryDistribution(ctx context.Context, clientID string) ([]domain.CategorySlice, error)
	Trend(ctx context.Context, clientID string, days int) ([]domain.TrendPoint, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
	ClientPerformance(ctx context.Context, clientID string) (*domain.ClientPerformance, error)
}

type Config struct {
	// ComparisonWindow is the length of each of the two periods the
	// dashboard change percentages compare.
	ComparisonWindow time.Duration
	DefaultTrendDays int
	MaxActivityLimit int
}

func DefaultConfig() Config {
	return Config{
		ComparisonWindow: 30 * 24 * time.Hour,
		DefaultTrendDays: 30,
		MaxActivityLimit: 50,
	}
}

type aggregator struct {
	reports         reportstore.Store
	recommendations recstore.Store
	cache           *cache.Manager
	config          Config
	now             func() time.Time
}

func NewAggregator(
	reports reportstore.Store,
	recommendations recstore.Store,
	cacheManager *cache.Manager,
	config Config,
) Aggregator {
	if config.ComparisonWindow == 0 {
		config = DefaultConfig()
	}
	return &aggregator{
		reports:         reports,
		recommendations: recommendations,
		cache:           cacheManager,
		config:          config,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (a *aggregator) DashboardMetrics(ctx context.Context, clientID string) (*domain.DashboardMetrics, error) {
	var metrics domain.DashboardMetrics
	err := a.cache.GetOrCompute(ctx,
		cache.KeySpec{Scope: scope(clientID), Op: "dashboard_metrics"},
		cache.TTLShort,
		&metrics,
		func(ctx context.Context) (any, error) {
			return a.computeDashboardMetrics(ctx, clientID)
		},
	)
	if err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (a *aggregator) computeDashboardMetrics(ctx context.Context, clientID string) (*domain.DashboardMetrics, error) {
	now := a.now()
	currentStart := now.Add(-a.config.ComparisonWindow)
	previousStart := currentStart.Add(-a.config.ComparisonWindow)

	current, err := a.reports.PeriodAggregate(ctx, clientID, currentStart, now)
	if err != nil {
		return nil, fmt.Errorf("aggregate current period: %w", err)
	}
	previous, err := a.reports.PeriodAggregate(ctx, clientID, previousStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("aggregate previous period: %w", err)
	}

	return &domain.DashboardMetrics{
		TotalReports:         current.Reports,
		CompletedReports:     current.Completed,
		FailedReports:        current.Failed,
		TotalRecommendations: current.Recommendations,
		TotalSavings:         current.Savings,
		ReportsChangePct:     domain.PercentChange(float64(current.Reports), float64(previous.Reports)),
		SavingsChangePct:     domain.PercentChange(current.Savings, previous.Savings),
		GeneratedAt:          now,
	}, nil
}

func (a *aggregator) CategoryDistribution(ctx context.Context, clientID string) ([]domain.CategorySlice, error) {
	var slices []domain.CategorySlice
	err := a.cache.GetOrCompute(ctx,
		cache.KeySpec{Scope: scope(clientID), Op: "category_distribution"},
		cache.TTLDefault,
		&slices,
		func(ctx context.Context) (any, error) {
			aggregates, err := a.recommendations.Aggregate(ctx, recstore.AggregateQuery{
				ClientID: clientID,
				GroupBy:  "category",
			})
			if err != nil {
				return nil, err
			}
			result := make([]domain.CategorySlice, 0, len(aggregates))
			for _, agg := range aggregates {
				result = append(result, domain.CategorySlice{
					Category: domain.Category(agg.Key),
					Count:    agg.Count,
					Savings:  agg.Savings,
				})
			}
			sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
			return result, nil
		},
	)
	return slices, err
}

func (a *aggregator) Trend(ctx context.Context, clientID string, days int) ([]domain.TrendPoint, error) {
	if days <= 0 {
		days = a.config.DefaultTrendDays
	}

	var points []domain.TrendPoint
	err := a.cache.GetOrCompute(ctx,
		cache.KeySpec{
			Scope: scope(clientID),
			Op:    "trend",
			Args:  map[string]string{"days": strconv.Itoa(days)},
		},
		cache.TTLDefault,
		&points,
		func(ctx context.Context) (any, error) {
			now := a.now()
			start := now.AddDate(0, 0, -days)
			aggregates, err := a.reports.DailyAggregates(ctx, clientID, start, now)
			if err != nil {
				return nil, err
			}
			result := make([]domain.TrendPoint, 0, len(aggregates))
			for _, agg := range aggregates {
				result = append(result, domain.TrendPoint{
					Date:    agg.Date,
					Reports: agg.Reports,
					Savings: agg.Savings,
				})
			}
			return result, nil
		},
	)
	return points, err
}

func (a *aggregator) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 || limit > a.config.MaxActivityLimit {
		limit = a.config.MaxActivityLimit
	}

	var entries []domain.ActivityEntry
	err := a.cache.GetOrCompute(ctx,
		cache.KeySpec{
			Op:   "recent_activity",
			Args: map[string]string{"limit": strconv.Itoa(limit)},
		},
		cache.TTLShort,
		&entries,
		func(ctx context.Context) (any, error) {
			reports, err := a.reports.ListRecent(ctx, limit)
			if err != nil {
				return nil, err
			}
			result := make([]domain.ActivityEntry, 0, len(reports))
			for _, r := range reports {
				result = append(result, domain.ActivityEntry{
					ReportID:  r.ID,
					ClientID:  r.ClientID,
					Type:      domain.ReportType(r.Type),
					Status:    domain.ReportStatus(r.Status),
					UpdatedAt: r.UpdatedAt,
				})
			}
			return result, nil
		},
	)
	return entries, err
}

func (a *aggregator) ClientPerformance(ctx context.Context, clientID string) (*domain.ClientPerformance, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	var performance domain.ClientPerformance
	err := a.cache.GetOrCompute(ctx,
		cache.KeySpec{Scope: clientID, Op: "client_performance"},
		cache.TTLLong,
		&performance,
		func(ctx context.Context) (any, error) {
			return a.computeClientPerformance(ctx, clientID)
		},
	)
	if err != nil {
		return nil, err
	}
	return &performance, nil
}

func (a *aggregator) computeClientPerformance(ctx context.Context, clientID string) (*domain.ClientPerformance, error) {
	totals, err := a.reports.PeriodAggregate(ctx, clientID, time.Time{}, a.now())
	if err != nil {
		return nil, err
	}

	impacts, err := a.recommendations.Aggregate(ctx, recstore.AggregateQuery{
		ClientID: clientID,
		GroupBy:  "impact",
	})
	if err != nil {
		return nil, err
	}

	distribution := make(map[domain.Impact]int64, len(impacts))
	var recommendationTotal int64
	var savingsTotal float64
	for _, agg := range impacts {
		distribution[domain.Impact(agg.Key)] = agg.Count
		recommendationTotal += agg.Count
		savingsTotal += agg.Savings
	}

	return &domain.ClientPerformance{
		ClientID:           clientID,
		Reports:            totals.Reports,
		Recommendations:    recommendationTotal,
		TotalSavings:       savingsTotal,
		ImpactDistribution: distribution,
	}, nil
}

// scope maps an empty client filter onto the shared cache scope so the
// orchestrator's global invalidation reaches it.
func scope(clientID string) string {
	if clientID == "" {
		return "global"
	}
	return clientID
}

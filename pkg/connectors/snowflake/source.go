package snowflake

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

const (
	// DefaultCreditPrice is the on-demand USD price per credit.
	DefaultCreditPrice = 3.0

	// overheadShareThreshold flags warehouses whose non-compute credits
	// make up too large a share of total spend.
	overheadShareThreshold = 0.25

	minCreditsForReview = 10.0
)

// Source reads warehouse metering history and flags warehouses burning a
// disproportionate share of credits on cloud services overhead.
type Source struct {
	db          *sql.DB
	creditPrice float64
}

func NewSource(db *sql.DB, creditPrice float64) *Source {
	if creditPrice <= 0 {
		creditPrice = DefaultCreditPrice
	}
	return &Source{db: db, creditPrice: creditPrice}
}

func (s *Source) Platform() string {
	return "Snowflake"
}

const meteringQuery = `
	SELECT
		warehouse_name,
		SUM(credits_used) AS credits,
		SUM(credits_used_compute) AS compute_credits
	FROM snowflake.account_usage.warehouse_metering_history
	WHERE start_time >= dateadd(days, ?, current_timestamp())
	GROUP BY warehouse_name
	ORDER BY credits DESC`

func (s *Source) Collect(ctx context.Context, days int) ([]domain.RecommendationDraft, error) {
	rows, err := s.db.QueryContext(ctx, meteringQuery, -days)
	if err != nil {
		return nil, fmt.Errorf("query warehouse metering: %w", err)
	}
	defer rows.Close()

	var drafts []domain.RecommendationDraft
	for rows.Next() {
		var warehouse string
		var credits, computeCredits float64
		if err := rows.Scan(&warehouse, &credits, &computeCredits); err != nil {
			return nil, err
		}

		if credits < minCreditsForReview {
			continue
		}
		overhead := credits - computeCredits
		share := overhead / credits
		if share <= overheadShareThreshold {
			continue
		}

		savings := overhead * s.creditPrice
		impact := domain.ImpactMedium
		if share > 2*overheadShareThreshold {
			impact = domain.ImpactHigh
		}

		drafts = append(drafts, domain.RecommendationDraft{
			Category:         domain.CategoryCost,
			Impact:           impact,
			Text:             fmt.Sprintf("Right-size warehouse %s: %.0f%% of credits went to cloud services overhead", warehouse, share*100),
			Resource:         warehouse,
			EstimatedSavings: &savings,
			Currency:         "USD",
			Extras: map[string]string{
				"provider":        "snowflake",
				"credits":         fmt.Sprintf("%.2f", credits),
				"compute_credits": fmt.Sprintf("%.2f", computeCredits),
				"window_days":     fmt.Sprintf("%d", days),
			},
		})
	}
	return drafts, rows.Err()
}

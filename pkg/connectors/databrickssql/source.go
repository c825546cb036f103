package databrickssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

const (
	// DefaultDBURate is the list price used when no rate is configured.
	DefaultDBURate = 0.22

	// jobConversionSavingsShare is the share of all-purpose spend
	// typically recovered by moving the workload to job compute.
	jobConversionSavingsShare = 0.3

	idleDBUThreshold = 1.0
)

// Source reads billing usage from a SQL warehouse and flags all-purpose
// compute that should run as jobs, plus resources with negligible usage.
type Source struct {
	db      *sql.DB
	dbuRate float64
}

func NewSource(db *sql.DB, dbuRate float64) *Source {
	if dbuRate <= 0 {
		dbuRate = DefaultDBURate
	}
	return &Source{db: db, dbuRate: dbuRate}
}

func (s *Source) Platform() string {
	return "Databricks"
}

const usageQuery = `
	SELECT
		COALESCE(usage_metadata.cluster_id, usage_metadata.warehouse_id, 'unknown') AS resource_id,
		sku_name,
		SUM(usage_quantity) AS dbus
	FROM system.billing.usage
	WHERE usage_start_time >= ? AND usage_start_time < ?
	GROUP BY 1, 2
	ORDER BY dbus DESC`

func (s *Source) Collect(ctx context.Context, days int) ([]domain.RecommendationDraft, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, usageQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("query billing usage: %w", err)
	}
	defer rows.Close()

	var drafts []domain.RecommendationDraft
	for rows.Next() {
		var resourceID, skuName string
		var dbus float64
		if err := rows.Scan(&resourceID, &skuName, &dbus); err != nil {
			return nil, err
		}

		if draft, ok := s.usageDraft(resourceID, skuName, dbus); ok {
			drafts = append(drafts, draft)
		}
	}
	return drafts, rows.Err()
}

func (s *Source) usageDraft(resourceID, skuName string, dbus float64) (domain.RecommendationDraft, bool) {
	extras := map[string]string{
		"provider": "databricks",
		"sku":      skuName,
		"dbus":     fmt.Sprintf("%.2f", dbus),
	}

	if dbus > idleDBUThreshold && strings.Contains(skuName, "ALL_PURPOSE") {
		savings := dbus * s.dbuRate * jobConversionSavingsShare
		return domain.RecommendationDraft{
			Category:         domain.CategoryCost,
			Impact:           domain.ImpactMedium,
			Text:             fmt.Sprintf("Run workload on cluster %s as job compute instead of all-purpose", resourceID),
			Resource:         resourceID,
			EstimatedSavings: &savings,
			Currency:         "USD",
			Extras:           extras,
		}, true
	}

	if dbus <= idleDBUThreshold {
		return domain.RecommendationDraft{
			Category: domain.CategoryOperational,
			Impact:   domain.ImpactLow,
			Text:     fmt.Sprintf("Remove unused resource %s (%.2f DBUs in the window)", resourceID, dbus),
			Resource: resourceID,
			Currency: "USD",
			Extras:   extras,
		}, true
	}

	return domain.RecommendationDraft{}, false
}

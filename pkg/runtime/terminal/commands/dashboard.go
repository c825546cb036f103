package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/runtime/terminal/export"
	"github.com/cloudlens/advisor/pkg/services/analytics"

	"github.com/spf13/cobra"
)

type DashboardCmd struct {
	clientID  string
	days      int
	limit     int
	analytics analytics.Aggregator
	reporter  *export.Reporter
}

func NewDashboardCmd(aggregator analytics.Aggregator, reporter *export.Reporter) *cobra.Command {
	dc := &DashboardCmd{analytics: aggregator, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show aggregate report and savings metrics",
		RunE:  dc.run,
	}

	cmd.Flags().StringVar(&dc.clientID, "client", "", "Restrict metrics to one client")
	cmd.Flags().IntVar(&dc.days, "days", 30, "Trend window in days")
	cmd.Flags().IntVar(&dc.limit, "limit", 10, "Recent activity entries to show")

	return cmd
}

func (dc *DashboardCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	metrics, err := dc.analytics.DashboardMetrics(ctx, dc.clientID)
	if err != nil {
		return err
	}
	categories, err := dc.analytics.CategoryDistribution(ctx, dc.clientID)
	if err != nil {
		return err
	}
	activity, err := dc.analytics.RecentActivity(ctx, dc.limit)
	if err != nil {
		return err
	}

	doc := dc.assemble(metrics, categories, activity)
	return dc.reporter.Handle(doc)
}

// assemble shapes the aggregates into the same document form the report
// strategies produce, so the table reporter can render either.
func (dc *DashboardCmd) assemble(
	metrics *domain.DashboardMetrics,
	categories []domain.CategorySlice,
	activity []domain.ActivityEntry,
) *domain.Document {
	title := "Advisor Dashboard"
	if dc.clientID != "" {
		title = fmt.Sprintf("Advisor Dashboard - %s", dc.clientID)
	}

	categorySection := domain.DocumentSection{
		Title: "Savings by Category",
		Empty: len(categories) == 0,
	}
	for _, slice := range categories {
		categorySection.Items = append(categorySection.Items, domain.DocumentItem{
			Name:        string(slice.Category),
			Value:       fmt.Sprintf("%.2f", slice.Savings),
			Unit:        "USD",
			Description: fmt.Sprintf("%d recommendations", slice.Count),
		})
	}

	activitySection := domain.DocumentSection{
		Title: "Recent Activity",
		Empty: len(activity) == 0,
	}
	for _, entry := range activity {
		activitySection.Items = append(activitySection.Items, domain.DocumentItem{
			Name:        entry.ReportID,
			Value:       string(entry.Status),
			Description: fmt.Sprintf("%s %s report, updated %s", entry.ClientID, entry.Type, entry.UpdatedAt.Format("2006-01-02 15:04")),
		})
	}

	end := metrics.GeneratedAt
	return &domain.Document{
		Title:  title,
		Period: domain.TimePeriod{Start: end.AddDate(0, 0, -dc.days), End: end, Duration: dc.days},
		Sections: []domain.DocumentSection{
			{
				Title: "Overview",
				Summary: map[string]any{
					"Total Reports":         metrics.TotalReports,
					"Completed Reports":     metrics.CompletedReports,
					"Failed Reports":        metrics.FailedReports,
					"Total Recommendations": metrics.TotalRecommendations,
					"Reports Change":        fmt.Sprintf("%.1f%%", metrics.ReportsChangePct),
					"Savings Change":        fmt.Sprintf("%.1f%%", metrics.SavingsChangePct),
				},
			},
			categorySection,
			activitySection,
		},
		TotalSavings: metrics.TotalSavings,
		Currency:     "USD",
	}
}

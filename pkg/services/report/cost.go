package report

import (
	"fmt"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// costStrategy filters to the cost category and ranks items by the
// savings they would return.
type costStrategy struct{}

func NewCostStrategy(Config) Strategy {
	return costStrategy{}
}

func (costStrategy) Type() domain.ReportType {
	return domain.ReportTypeCost
}

func (costStrategy) Build(ctx Context) domain.Document {
	doc := domain.Document{
		Title:    "Cost Optimization Report",
		ReportID: ctx.Report.ID,
		ClientID: ctx.Report.ClientID,
		Type:     domain.ReportTypeCost,
		Period:   ctx.period(),
		Currency: ctx.Currency,
	}

	costItems := filterByCategory(ctx.Recommendations, domain.CategoryCost)
	doc.TotalSavings = groupSavings(costItems)

	if len(costItems) == 0 {
		doc.Sections = append(doc.Sections, emptySection("Cost Savings", "No cost recommendations in this export."))
		return doc
	}

	section := domain.DocumentSection{
		Title: "Savings Ranking",
		Summary: map[string]any{
			"cost recommendations":    len(costItems),
			"total estimated savings": fmt.Sprintf("%.2f %s", doc.TotalSavings, ctx.Currency),
		},
	}
	for rank, rec := range sortBySavings(costItems) {
		item := itemFor(rec)
		item.Description = fmt.Sprintf("#%d %s", rank+1, rec.Text)
		section.Items = append(section.Items, item)
	}
	doc.Sections = append(doc.Sections, section)
	return doc
}

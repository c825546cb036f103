package report

import (
	"fmt"
	"sort"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// detailedStrategy renders the full recommendation list grouped by
// affected resource, ordered by business impact then estimated savings.
type detailedStrategy struct{}

func NewDetailedStrategy(Config) Strategy {
	return detailedStrategy{}
}

func (detailedStrategy) Type() domain.ReportType {
	return domain.ReportTypeDetailed
}

func (detailedStrategy) Build(ctx Context) domain.Document {
	doc := domain.Document{
		Title:        "Detailed Optimization Report",
		ReportID:     ctx.Report.ID,
		ClientID:     ctx.Report.ClientID,
		Type:         domain.ReportTypeDetailed,
		Period:       ctx.period(),
		TotalSavings: ctx.TotalSavings,
		Currency:     ctx.Currency,
	}

	doc.Sections = append(doc.Sections, overviewSection(ctx))

	if len(ctx.Recommendations) == 0 {
		doc.Sections = append(doc.Sections, emptySection("Recommendations", "No recommendations in this export."))
		return doc
	}

	groups := make(map[string][]domain.Recommendation)
	for _, rec := range sortByImpactThenSavings(ctx.Recommendations) {
		resource := rec.Resource
		if resource == "" {
			resource = "unspecified resource"
		}
		groups[resource] = append(groups[resource], rec)
	}

	// Resources ordered by their total savings so the biggest wins lead.
	resources := make([]string, 0, len(groups))
	for resource := range groups {
		resources = append(resources, resource)
	}
	sort.SliceStable(resources, func(i, j int) bool {
		return groupSavings(groups[resources[i]]) > groupSavings(groups[resources[j]])
	})

	for _, resource := range resources {
		recs := groups[resource]
		section := domain.DocumentSection{
			Title: resource,
			Summary: map[string]any{
				"recommendations":   len(recs),
				"estimated savings": fmt.Sprintf("%.2f %s", groupSavings(recs), ctx.Currency),
			},
		}
		for _, rec := range recs {
			item := itemFor(rec)
			item.Name = string(rec.Impact)
			if item.Name == "" {
				item.Name = "unrated"
			}
			section.Items = append(section.Items, item)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func overviewSection(ctx Context) domain.DocumentSection {
	summary := map[string]any{
		"recommendations":         len(ctx.Recommendations),
		"total estimated savings": fmt.Sprintf("%.2f %s", ctx.TotalSavings, ctx.Currency),
	}
	for category, count := range ctx.CategoryCounts {
		if category == "" {
			category = "uncategorized"
		}
		summary[string(category)] = count
	}
	return domain.DocumentSection{Title: "Overview", Summary: summary}
}

func groupSavings(recs []domain.Recommendation) float64 {
	var total float64
	for _, rec := range recs {
		total += rec.Savings()
	}
	return total
}

package report

import (
	"fmt"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// executiveStrategy keeps the document short: top-N opportunities plus
// roll-up totals, nothing else.
type executiveStrategy struct {
	topN int
}

func NewExecutiveStrategy(config Config) Strategy {
	return executiveStrategy{topN: config.ExecutiveTopN}
}

func (executiveStrategy) Type() domain.ReportType {
	return domain.ReportTypeExecutive
}

func (s executiveStrategy) Build(ctx Context) domain.Document {
	doc := domain.Document{
		Title:        "Executive Summary",
		ReportID:     ctx.Report.ID,
		ClientID:     ctx.Report.ClientID,
		Type:         domain.ReportTypeExecutive,
		Period:       ctx.period(),
		TotalSavings: ctx.TotalSavings,
		Currency:     ctx.Currency,
	}

	rollup := domain.DocumentSection{
		Title: "Roll-up",
		Summary: map[string]any{
			"recommendations":         len(ctx.Recommendations),
			"total estimated savings": fmt.Sprintf("%.2f %s", ctx.TotalSavings, ctx.Currency),
			"high impact items":       ctx.ImpactCounts[domain.ImpactHigh],
		},
	}
	doc.Sections = append(doc.Sections, rollup)

	if len(ctx.Recommendations) == 0 {
		doc.Sections = append(doc.Sections, emptySection("Top Opportunities", "No recommendations in this export."))
		return doc
	}

	top := sortByImpactThenSavings(ctx.Recommendations)
	if len(top) > s.topN {
		top = top[:s.topN]
	}

	section := domain.DocumentSection{
		Title:   fmt.Sprintf("Top %d Opportunities", len(top)),
		Summary: map[string]any{"shown": len(top), "of": len(ctx.Recommendations)},
	}
	for _, rec := range top {
		section.Items = append(section.Items, itemFor(rec))
	}
	doc.Sections = append(doc.Sections, section)
	return doc
}

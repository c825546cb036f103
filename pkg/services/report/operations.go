package report

import (
	"fmt"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// operationsStrategy covers reliability and operational-excellence items,
// framed around availability rather than spend.
type operationsStrategy struct{}

func NewOperationsStrategy(Config) Strategy {
	return operationsStrategy{}
}

func (operationsStrategy) Type() domain.ReportType {
	return domain.ReportTypeOperations
}

func (operationsStrategy) Build(ctx Context) domain.Document {
	doc := domain.Document{
		Title:    "Operations & Reliability Report",
		ReportID: ctx.Report.ID,
		ClientID: ctx.Report.ClientID,
		Type:     domain.ReportTypeOperations,
		Period:   ctx.period(),
		Currency: ctx.Currency,
	}

	opsItems := filterByCategory(ctx.Recommendations,
		domain.CategoryReliability, domain.CategoryOperational)
	doc.TotalSavings = groupSavings(opsItems)

	if len(opsItems) == 0 {
		doc.Sections = append(doc.Sections, emptySection("Availability Risks", "No reliability or operations recommendations in this export."))
		return doc
	}

	reliability := filterByCategory(opsItems, domain.CategoryReliability)
	section := domain.DocumentSection{
		Title: "Availability Risks",
		Summary: map[string]any{
			"reliability items":  len(reliability),
			"operational items":  len(opsItems) - len(reliability),
			"availability focus": fmt.Sprintf("%d resources affected", affectedResources(opsItems)),
		},
	}
	for _, rec := range sortByImpactThenSavings(opsItems) {
		item := itemFor(rec)
		item.Description = fmt.Sprintf("[%s] %s", rec.Category, rec.Text)
		section.Items = append(section.Items, item)
	}
	doc.Sections = append(doc.Sections, section)
	return doc
}

func affectedResources(recs []domain.Recommendation) int {
	seen := make(map[string]bool)
	for _, rec := range recs {
		if rec.Resource != "" {
			seen[rec.Resource] = true
		}
	}
	return len(seen)
}

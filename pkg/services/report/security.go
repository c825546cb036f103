package report

import (
	"sort"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// securityStrategy filters to security items and scores each one from its
// business-impact level. The score is deliberately coarse: the export
// carries no CVSS-like detail, so impact is the only risk signal.
type securityStrategy struct{}

func NewSecurityStrategy(Config) Strategy {
	return securityStrategy{}
}

func (securityStrategy) Type() domain.ReportType {
	return domain.ReportTypeSecurity
}

func riskScore(impact domain.Impact) int {
	return impact.Weight() * 30 // high 90, medium 60, low 30
}

func (securityStrategy) Build(ctx Context) domain.Document {
	doc := domain.Document{
		Title:    "Security Posture Report",
		ReportID: ctx.Report.ID,
		ClientID: ctx.Report.ClientID,
		Type:     domain.ReportTypeSecurity,
		Period:   ctx.period(),
		Currency: ctx.Currency,
	}

	securityItems := filterByCategory(ctx.Recommendations, domain.CategorySecurity)
	if len(securityItems) == 0 {
		doc.Sections = append(doc.Sections, emptySection("Security Findings", "No security issues found in this export."))
		return doc
	}

	sorted := make([]domain.Recommendation, len(securityItems))
	copy(sorted, securityItems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return riskScore(sorted[i].Impact) > riskScore(sorted[j].Impact)
	})

	highRisk := 0
	for _, rec := range sorted {
		if rec.Impact == domain.ImpactHigh {
			highRisk++
		}
	}

	section := domain.DocumentSection{
		Title: "Security Findings",
		Summary: map[string]any{
			"findings":  len(sorted),
			"high risk": highRisk,
		},
	}
	for _, rec := range sorted {
		item := itemFor(rec)
		item.Value = riskScore(rec.Impact)
		item.Unit = "risk"
		section.Items = append(section.Items, item)
	}
	doc.Sections = append(doc.Sections, section)
	return doc
}

package report

import (
	"sort"
	"time"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Context carries the shared computations every strategy starts from.
// Strategies only select and shape; they never recompute these.
type Context struct {
	Report          domain.Report
	Recommendations []domain.Recommendation
	CategoryCounts  map[domain.Category]int
	CategorySavings map[domain.Category]float64
	ImpactCounts    map[domain.Impact]int
	TotalSavings    float64
	Currency        string
	GeneratedAt     time.Time
}

// BuildContext assembles the shared strategy input from a report and its
// recommendations.
func BuildContext(report domain.Report, recommendations []domain.Recommendation) Context {
	ctx := Context{
		Report:          report,
		Recommendations: recommendations,
		CategoryCounts:  make(map[domain.Category]int),
		CategorySavings: make(map[domain.Category]float64),
		ImpactCounts:    make(map[domain.Impact]int),
		GeneratedAt:     time.Now().UTC(),
	}

	for _, rec := range recommendations {
		ctx.CategoryCounts[rec.Category]++
		ctx.CategorySavings[rec.Category] += rec.Savings()
		ctx.ImpactCounts[rec.Impact]++
		ctx.TotalSavings += rec.Savings()
		if ctx.Currency == "" && rec.Currency != "" {
			ctx.Currency = rec.Currency
		}
	}
	if ctx.Currency == "" {
		ctx.Currency = "USD"
	}
	return ctx
}

func (c Context) period() domain.TimePeriod {
	start := c.Report.CreatedAt
	end := c.GeneratedAt
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return domain.TimePeriod{Start: start, End: end, Duration: days}
}

// filterByCategory returns recommendations in any of the given categories,
// preserving input order.
func filterByCategory(recs []domain.Recommendation, categories ...domain.Category) []domain.Recommendation {
	wanted := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	var filtered []domain.Recommendation
	for _, rec := range recs {
		if wanted[rec.Category] {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// sortByImpactThenSavings orders by business impact weight, then estimated
// savings, both descending. Stable so equal rows keep their upload order.
func sortByImpactThenSavings(recs []domain.Recommendation) []domain.Recommendation {
	sorted := make([]domain.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Impact.Weight() != sorted[j].Impact.Weight() {
			return sorted[i].Impact.Weight() > sorted[j].Impact.Weight()
		}
		return sorted[i].Savings() > sorted[j].Savings()
	})
	return sorted
}

func sortBySavings(recs []domain.Recommendation) []domain.Recommendation {
	sorted := make([]domain.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Savings() > sorted[j].Savings()
	})
	return sorted
}

func emptySection(title, note string) domain.DocumentSection {
	return domain.DocumentSection{
		Title:   title,
		Summary: map[string]any{"note": note},
		Empty:   true,
	}
}

func itemFor(rec domain.Recommendation) domain.DocumentItem {
	name := rec.Resource
	if name == "" {
		name = "unspecified resource"
	}
	return domain.DocumentItem{
		Name:        name,
		Value:       rec.Savings(),
		Unit:        rec.Currency,
		Description: rec.Text,
	}
}

package domain

import "time"

type Category string

const (
	CategoryCost        Category = "cost"
	CategorySecurity    Category = "security"
	CategoryReliability Category = "reliability"
	CategoryPerformance Category = "performance"
	CategoryOperational Category = "operational-excellence"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Weight orders impacts for sorting and risk scoring, higher is worse.
func (i Impact) Weight() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	}
	return 0
}

// Recommendation is one normalized row of vendor optimization advice.
// Extras keeps columns we don't recognize so vendor schema drift survives
// the round trip into generated reports.
type Recommendation struct {
	ID               string
	ReportID         string
	Category         Category
	Impact           Impact
	Text             string
	Resource         string
	EstimatedSavings *float64 // nil when the export had no figure
	Currency         string
	Extras           map[string]string
	CreatedAt        time.Time
}

// RecommendationDraft is a parsed row prior to persistence.
type RecommendationDraft struct {
	Category         Category
	Impact           Impact
	Text             string
	Resource         string
	EstimatedSavings *float64
	Currency         string
	Extras           map[string]string
}

// Savings returns the estimated savings, treating absent as zero.
func (r Recommendation) Savings() float64 {
	if r.EstimatedSavings == nil {
		return 0
	}
	return *r.EstimatedSavings
}

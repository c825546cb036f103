package domain

import "time"

// PercentChangeNew is returned when the previous period had nothing to
// compare against but the current one does.
const PercentChangeNew = 100.0

type DashboardMetrics struct {
	TotalReports         int64
	CompletedReports     int64
	FailedReports        int64
	TotalRecommendations int64
	TotalSavings         float64
	ReportsChangePct     float64
	SavingsChangePct     float64
	GeneratedAt          time.Time
}

type CategorySlice struct {
	Category Category
	Count    int64
	Savings  float64
}

type TrendPoint struct {
	Date    time.Time
	Reports int64
	Savings float64
}

type ActivityEntry struct {
	ReportID  string
	ClientID  string
	Type      ReportType
	Status    ReportStatus
	UpdatedAt time.Time
}

type ClientPerformance struct {
	ClientID           string
	Reports            int64
	Recommendations    int64
	TotalSavings       float64
	ImpactDistribution map[Impact]int64
}

// PercentChange compares current against previous, yielding a defined
// sentinel instead of a division error when previous is zero.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return PercentChangeNew
	}
	return (current - previous) / previous * 100
}

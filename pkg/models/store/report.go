package store

import "time"

type Report struct {
	ID            string
	ClientID      string
	Type          string
	Status        string
	SourceFile    string
	HTMLPath      string
	PDFPath       string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Recommendation struct {
	ID               string
	ReportID         string
	Category         string
	Impact           string
	Text             string
	Resource         string
	EstimatedSavings *float64
	Currency         string
	Extras           map[string]string
	CreatedAt        time.Time
}

// CategoryAggregate is one group-by row from the recommendation store.
type CategoryAggregate struct {
	Key     string
	Count   int64
	Savings float64
}

// PeriodAggregate is a count/sum over a time window.
type PeriodAggregate struct {
	Reports         int64
	Completed       int64
	Failed          int64
	Recommendations int64
	Savings         float64
}

type DailyAggregate struct {
	Date    time.Time
	Reports int64
	Savings float64
}

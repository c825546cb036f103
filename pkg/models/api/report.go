package api

import "time"

type Report struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	HTMLPath      string    `json:"html_path,omitempty"`
	PDFPath       string    `json:"pdf_path,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SubmitResponse struct {
	Report          Report `json:"report"`
	Recommendations int    `json:"recommendations"`
}

type GenerationResponse struct {
	ReportID string `json:"report_id"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
}

type ValidationFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DashboardMetrics struct {
	TotalReports         int64     `json:"total_reports"`
	CompletedReports     int64     `json:"completed_reports"`
	FailedReports        int64     `json:"failed_reports"`
	TotalRecommendations int64     `json:"total_recommendations"`
	TotalSavings         float64   `json:"total_savings"`
	ReportsChangePct     float64   `json:"reports_change_pct"`
	SavingsChangePct     float64   `json:"savings_change_pct"`
	GeneratedAt          time.Time `json:"generated_at"`
}

type CategorySlice struct {
	Category string  `json:"category"`
	Count    int64   `json:"count"`
	Savings  float64 `json:"savings"`
}

type TrendPoint struct {
	Date    time.Time `json:"date"`
	Reports int64     `json:"reports"`
	Savings float64   `json:"savings"`
}

type ClientPerformance struct {
	ClientID           string           `json:"client_id"`
	Reports            int64            `json:"reports"`
	Recommendations    int64            `json:"recommendations"`
	TotalSavings       float64          `json:"total_savings"`
	ImpactDistribution map[string]int64 `json:"impact_distribution"`
}

type ActivityEntry struct {
	ReportID  string    `json:"report_id"`
	ClientID  string    `json:"client_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

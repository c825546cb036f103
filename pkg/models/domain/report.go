package domain

import "time"

type ReportType string

const (
	ReportTypeDetailed   ReportType = "detailed"
	ReportTypeExecutive  ReportType = "executive"
	ReportTypeCost       ReportType = "cost"
	ReportTypeSecurity   ReportType = "security"
	ReportTypeOperations ReportType = "operations"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeDetailed, ReportTypeExecutive, ReportTypeCost, ReportTypeSecurity, ReportTypeOperations:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

func (s ReportStatus) Terminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

// CanTransition enforces pending -> processing -> completed|failed.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusProcessing || next == ReportStatusFailed
	case ReportStatusProcessing:
		return next == ReportStatusCompleted || next == ReportStatusFailed
	}
	return false
}

// Report is the aggregate for one uploaded advisor export and its rendered output.
type Report struct {
	ID            string
	ClientID      string
	Type          ReportType
	Status        ReportStatus
	SourceFile    string
	HTMLPath      string // set only in the completed state
	PDFPath       string // set only in the completed state
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TimePeriod represents a time range for a rendered document
type TimePeriod struct {
	Start    time.Time
	End      time.Time
	Duration int // in days
}

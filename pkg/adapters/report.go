package adapters

import (
	"maps"

	"github.com/cloudlens/advisor/pkg/models/api"
	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/models/store"
)

func MapStoreReportToDomain(r store.Report) domain.Report {
	return domain.Report{
		ID:            r.ID,
		ClientID:      r.ClientID,
		Type:          domain.ReportType(r.Type),
		Status:        domain.ReportStatus(r.Status),
		SourceFile:    r.SourceFile,
		HTMLPath:      r.HTMLPath,
		PDFPath:       r.PDFPath,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func MapDomainReportToStore(r domain.Report) store.Report {
	return store.Report{
		ID:            r.ID,
		ClientID:      r.ClientID,
		Type:          string(r.Type),
		Status:        string(r.Status),
		SourceFile:    r.SourceFile,
		HTMLPath:      r.HTMLPath,
		PDFPath:       r.PDFPath,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func MapStoreRecommendationToDomain(r store.Recommendation) domain.Recommendation {
	return domain.Recommendation{
		ID:               r.ID,
		ReportID:         r.ReportID,
		Category:         domain.Category(r.Category),
		Impact:           domain.Impact(r.Impact),
		Text:             r.Text,
		Resource:         r.Resource,
		EstimatedSavings: r.EstimatedSavings,
		Currency:         r.Currency,
		Extras:           maps.Clone(r.Extras),
		CreatedAt:        r.CreatedAt,
	}
}

func MapDraftToStoreRecommendation(reportID, id string, d domain.RecommendationDraft) store.Recommendation {
	return store.Recommendation{
		ID:               id,
		ReportID:         reportID,
		Category:         string(d.Category),
		Impact:           string(d.Impact),
		Text:             d.Text,
		Resource:         d.Resource,
		EstimatedSavings: d.EstimatedSavings,
		Currency:         d.Currency,
		Extras:           maps.Clone(d.Extras),
	}
}

func MapDomainReportToApi(r domain.Report) api.Report {
	apiReport := api.Report{
		ID:        r.ID,
		ClientID:  r.ClientID,
		Type:      string(r.Type),
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Status == domain.ReportStatusCompleted {
		apiReport.HTMLPath = r.HTMLPath
		apiReport.PDFPath = r.PDFPath
	}
	if r.FailureReason != nil {
		apiReport.FailureReason = *r.FailureReason
	}
	return apiReport
}

func MapDomainMetricsToApi(m domain.DashboardMetrics) api.DashboardMetrics {
	return api.DashboardMetrics{
		TotalReports:         m.TotalReports,
		CompletedReports:     m.CompletedReports,
		FailedReports:        m.FailedReports,
		TotalRecommendations: m.TotalRecommendations,
		TotalSavings:         m.TotalSavings,
		ReportsChangePct:     m.ReportsChangePct,
		SavingsChangePct:     m.SavingsChangePct,
		GeneratedAt:          m.GeneratedAt,
	}
}

package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cloudlens/advisor/pkg/adapters"
	"github.com/cloudlens/advisor/pkg/models/api"
	"github.com/cloudlens/advisor/pkg/models/domain"
	"github.com/cloudlens/advisor/pkg/services/analytics"
	"github.com/cloudlens/advisor/pkg/services/ingest"
	"github.com/cloudlens/advisor/pkg/services/jobs"
	reportstore "github.com/cloudlens/advisor/pkg/store/duckdb/report"
)

// maxUploadBytes bounds the multipart body before validation sees it.
const maxUploadBytes = 16 << 20

// Pipeline is the ingestion surface the handler needs; implemented by
// pkg/services/ingest.
type Pipeline interface {
	SubmitCSV(ctx context.Context, clientID string, reportType domain.ReportType, filename string, fileBytes []byte) (*ingest.Submission, error)
	RequestGeneration(ctx context.Context, reportID string) (*jobs.Handle, error)
	GetReportStatus(ctx context.Context, reportID string) (*domain.Report, error)
}

type Handler struct {
	pipeline  Pipeline
	analytics analytics.Aggregator
}

func NewHandler(pipeline Pipeline, aggregator analytics.Aggregator) *Handler {
	return &Handler{pipeline: pipeline, analytics: aggregator}
}

// Submit accepts a multipart CSV upload and creates a pending report.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	clientID := r.FormValue("client_id")
	reportType := domain.ReportType(r.FormValue("type"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "unable to read upload")
		return
	}

	submission, err := h.pipeline.SubmitCSV(ctx, clientID, reportType, header.Filename, fileBytes)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(ctx, w, http.StatusUnprocessableEntity, api.ValidationFailure{
				Code:    string(validationErr.Code),
				Message: validationErr.Message,
			})
			return
		}
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, w, http.StatusCreated, api.SubmitResponse{
		Report:          adapters.MapDomainReportToApi(submission.Report),
		Recommendations: submission.Recommendations,
	})
}

// Generate schedules asynchronous generation for a report.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	handle, err := h.pipeline.RequestGeneration(ctx, reportID)
	if err != nil {
		switch {
		case errors.Is(err, reportstore.ErrNotFound):
			writeError(ctx, w, http.StatusNotFound, "report not found")
		case errors.Is(err, jobs.ErrAlreadyRunning):
			writeJSON(ctx, w, http.StatusConflict, api.GenerationResponse{
				ReportID: reportID,
				JobID:    reportID,
				Status:   string(domain.ReportStatusProcessing),
			})
		case errors.Is(err, jobs.ErrQueueFull):
			writeError(ctx, w, http.StatusServiceUnavailable, "generation queue is full")
		default:
			writeError(ctx, w, http.StatusInternalServerError, "failed to schedule generation")
		}
		return
	}

	writeJSON(ctx, w, http.StatusAccepted, api.GenerationResponse{
		ReportID: handle.ReportID,
		JobID:    handle.ReportID,
		Status:   "queued",
	})
}

// Status returns the current state of a report and, once completed, its
// artifact paths.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	report, err := h.pipeline.GetReportStatus(ctx, reportID)
	if err != nil {
		if errors.Is(err, reportstore.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "report not found")
			return
		}
		writeError(ctx, w, http.StatusInternalServerError, "failed to read report")
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainReportToApi(*report))
}

func (h *Handler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metrics, err := h.analytics.DashboardMetrics(ctx, r.URL.Query().Get("client_id"))
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainMetricsToApi(*metrics))
}

func (h *Handler) CategoryDistribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slices, err := h.analytics.CategoryDistribution(ctx, r.URL.Query().Get("client_id"))
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to compute distribution")
		return
	}

	response := make([]api.CategorySlice, 0, len(slices))
	for _, slice := range slices {
		response = append(response, api.CategorySlice{
			Category: string(slice.Category),
			Count:    slice.Count,
			Savings:  slice.Savings,
		})
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	points, err := h.analytics.Trend(ctx, r.URL.Query().Get("client_id"), days)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to compute trend")
		return
	}

	response := make([]api.TrendPoint, 0, len(points))
	for _, point := range points {
		response = append(response, api.TrendPoint{
			Date:    point.Date,
			Reports: point.Reports,
			Savings: point.Savings,
		})
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.analytics.RecentActivity(ctx, limit)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to read activity")
		return
	}

	response := make([]api.ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		response = append(response, api.ActivityEntry{
			ReportID:  entry.ReportID,
			ClientID:  entry.ClientID,
			Type:      string(entry.Type),
			Status:    string(entry.Status),
			UpdatedAt: entry.UpdatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) ClientPerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "clientID")

	performance, err := h.analytics.ClientPerformance(ctx, clientID)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to compute client performance")
		return
	}

	impacts := make(map[string]int64, len(performance.ImpactDistribution))
	for impact, count := range performance.ImpactDistribution {
		impacts[string(impact)] = count
	}
	writeJSON(ctx, w, http.StatusOK, api.ClientPerformance{
		ClientID:           performance.ClientID,
		Reports:            performance.Reports,
		Recommendations:    performance.Recommendations,
		TotalSavings:       performance.TotalSavings,
		ImpactDistribution: impacts,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, map[string]string{"error": message})
}

package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/analysis"
	"github.com/ternarybob/relatus/internal/fetch"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
)

// maxUploadSize caps raw CSV uploads on /api/analyze.
const maxUploadSize = 32 << 20 // 32 MB

// AnalysisHandler serves the order analysis endpoints: analyzing a
// downloaded report by job id, and analyzing an uploaded CSV directly.
type AnalysisHandler struct {
	history interfaces.HistoryStorage
	events  interfaces.EventService
	fetcher *fetch.Fetcher
	logger  arbor.ILogger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(history interfaces.HistoryStorage, events interfaces.EventService, fetcher *fetch.Fetcher, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		history: history,
		events:  events,
		fetcher: fetcher,
		logger:  logger,
	}
}

// AnalyzeJobHandler handles POST /api/reports/{id}/analyze: downloads the
// job's report archive, runs the order analysis, and caches the result on
// the history record.
func (h *AnalysisHandler) AnalyzeJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := jobIDFromPath(r.URL.Path)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.history.Get(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if job.Status != models.JobStatusReady || job.DownloadURL == "" {
		WriteError(w, http.StatusConflict, "report is not ready for analysis")
		return
	}

	result, err := h.fetcher.Fetch(r.Context(), job.DownloadURL)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to download report")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Sales reports get the product breakdown; everything else gets the
	// order analysis.
	var payload interface{}
	var update models.JobUpdate
	if job.Type == models.ReportTypeSales {
		metrics, err := analysis.AnalyzeSalesArchive(result.Body)
		if err != nil {
			h.writeAnalysisError(w, jobID, err)
			return
		}
		payload = metrics
		update = models.JobUpdate{SalesAnalysis: metrics}
	} else {
		metrics, err := analysis.AnalyzeArchive(result.Body)
		if err != nil {
			h.writeAnalysisError(w, jobID, err)
			return
		}
		payload = metrics
		update = models.JobUpdate{Analysis: metrics}
	}

	if err := h.history.Update(r.Context(), jobID, update); err != nil {
		// The analysis still succeeded; log and serve it anyway
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to cache analysis on record")
	} else if h.events != nil {
		_ = h.events.Publish(r.Context(), interfaces.Event{
			Type:    interfaces.EventJobUpdated,
			Payload: map[string]interface{}{"job_id": jobID},
		})
	}

	WriteJSON(w, http.StatusOK, payload)
}

// AnalyzeUploadHandler handles POST /api/analyze: runs the order analysis
// over a raw CSV request body.
func (h *AnalysisHandler) AnalyzeUploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		WriteError(w, http.StatusBadRequest, "CSV content is required")
		return
	}

	table, err := analysis.DecodeRows(string(body), true)
	if err != nil {
		h.writeAnalysisError(w, "", err)
		return
	}

	WriteJSON(w, http.StatusOK, analysis.AnalyzeOrders(table))
}

func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, jobID string, err error) {
	var decodeErr *analysis.DecodeError
	switch {
	case errors.Is(err, analysis.ErrInvalidArchive), errors.Is(err, analysis.ErrNoCSVInArchive):
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Report archive unusable")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &decodeErr):
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Report CSV malformed")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Analysis failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// jobIDFromPath extracts the id from /api/reports/{id}/analyze.
func jobIDFromPath(path string) string {
	const prefix = "/api/reports/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/analyze")
	if strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

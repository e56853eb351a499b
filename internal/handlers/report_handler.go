package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/easyecom"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
	"github.com/ternarybob/relatus/internal/report"
)

// ReportHandler serves report submission and history endpoints.
type ReportHandler struct {
	service *report.Service
	history interfaces.HistoryStorage
	logger  arbor.ILogger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *report.Service, history interfaces.HistoryStorage, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		service: service,
		history: history,
		logger:  logger,
	}
}

// StockHandler handles /api/reports/stock: POST submits a new stock report,
// GET returns the stock history.
func (h *ReportHandler) StockHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		job, err := h.service.GenerateStockReport(r.Context())
		if err != nil {
			h.writeSubmitError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, job)
	case "GET":
		h.writeHistory(w, r, models.ReportTypeStock)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// SalesHandler handles /api/reports/sales: POST submits a new sales report
// for a date range, GET returns the sales history.
func (h *ReportHandler) SalesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		var req report.SalesReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		job, err := h.service.GenerateSalesReport(r.Context(), req)
		if err != nil {
			h.writeSubmitError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, job)
	case "GET":
		h.writeHistory(w, r, models.ReportTypeSales)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReportHandler) writeHistory(w http.ResponseWriter, r *http.Request, reportType models.ReportType) {
	jobs, err := h.history.List(r.Context(), reportType)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(reportType)).Msg("Failed to list history")
		WriteError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if jobs == nil {
		jobs = []*models.ReportJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

func (h *ReportHandler) writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, report.ErrInvalidDateRange) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var apiErr *easyecom.APIError
	if errors.As(err, &apiErr) {
		h.logger.Warn().Err(err).Msg("Report submission rejected upstream")
		WriteError(w, http.StatusBadGateway, apiErr.Error())
		return
	}

	h.logger.Error().Err(err).Msg("Report submission failed")
	WriteError(w, http.StatusBadGateway, err.Error())
}

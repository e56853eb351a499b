// Package easyecom provides a client for the EasyEcom reporting API.
// This package centralizes all EasyEcom API interactions for the application.
package easyecom

import (
	"fmt"
	"strings"
)

// Report status values returned by the download endpoint.
const (
	ReportStatusCompleted = "COMPLETED"
	ReportStatusFailed    = "FAILED"
)

// Synthetic report id prefixes issued in simulation mode.
const (
	simPrefix      = "SIM-"
	simStockPrefix = "SIM-STK-"
	simSalesPrefix = "SIM-SLS-"
)

// IsSimulatedReportID reports whether an id was issued by simulation mode.
// Status checks for such ids never touch the network, regardless of the
// configured simulation flag.
func IsSimulatedReportID(reportID string) bool {
	return strings.HasPrefix(reportID, simPrefix)
}

// salesReportParams is the params object of a MINI_SALES_REPORT request.
type salesReportParams struct {
	InvoiceType  string `json:"invoiceType"`
	DateType     string `json:"dateType"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	WarehouseIDs string `json:"warehouseIds"`
}

// queueRequest is the body of POST /reports/queue.
type queueRequest struct {
	ReportType string             `json:"reportType"`
	Params     *salesReportParams `json:"params,omitempty"`
}

// queueResponse is the body of a successful queue call.
type queueResponse struct {
	Data struct {
		ReportID string `json:"reportId"`
	} `json:"data"`
	Message *string `json:"message"`
}

// DownloadStatus is the payload of GET /reports/download.
type DownloadStatus struct {
	ReportStatus string `json:"reportStatus"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

// downloadResponse wraps DownloadStatus in the API envelope.
type downloadResponse struct {
	Data    DownloadStatus `json:"data"`
	Message *string        `json:"message"`
}

// errorBody is the best-effort shape of an error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// APIError represents a non-2xx response from the EasyEcom API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EasyEcom API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

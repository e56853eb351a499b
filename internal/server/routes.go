package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Reports (submit + history)
	mux.HandleFunc("/api/reports/stock", s.app.ReportHandler.StockHandler)
	mux.HandleFunc("/api/reports/sales", s.app.ReportHandler.SalesHandler)
	mux.HandleFunc("/api/reports/", s.handleReportRoutes) // POST /{id}/analyze

	// API routes - Analysis of uploaded CSVs
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeUploadHandler)

	// API routes - Download relay
	mux.HandleFunc("/api/proxy-file", s.app.ProxyHandler.ProxyFileHandler)

	// API routes - Settings
	mux.HandleFunc("/api/config", s.app.SettingsHandler.ConfigHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleReportRoutes routes /api/reports/{id}/... requests
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/reports/{id}/analyze
	if strings.HasSuffix(path, "/analyze") {
		s.app.AnalysisHandler.AnalyzeJobHandler(w, r)
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}

package models

import "testing"

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusProcessing.Terminal() {
		t.Error("Processing must not be terminal")
	}
	if !JobStatusReady.Terminal() {
		t.Error("Ready must be terminal")
	}
	if !JobStatusFailed.Terminal() {
		t.Error("Failed must be terminal")
	}
}

func TestReportTypeValid(t *testing.T) {
	if !ReportTypeStock.Valid() || !ReportTypeSales.Valid() {
		t.Error("Known report types must be valid")
	}
	if ReportType("BOGUS").Valid() {
		t.Error("Unknown report type must be invalid")
	}
}

func TestApplyPartialUpdate(t *testing.T) {
	job := ReportJob{
		ID:       "job-1",
		ReportID: "rpt-1",
		Status:   JobStatusProcessing,
	}

	job.Apply(ReadyUpdate("https://files.example.com/rpt-1.zip"))

	if job.Status != JobStatusReady {
		t.Errorf("Expected Ready, got %s", job.Status)
	}
	if job.DownloadURL != "https://files.example.com/rpt-1.zip" {
		t.Errorf("Unexpected URL: %s", job.DownloadURL)
	}
	// Fields absent from the update are untouched.
	if job.ReportID != "rpt-1" {
		t.Errorf("ReportID clobbered: %s", job.ReportID)
	}
}

func TestApplyNilFieldsAreNoOps(t *testing.T) {
	job := ReportJob{Status: JobStatusReady, DownloadURL: "#"}

	job.Apply(JobUpdate{})

	if job.Status != JobStatusReady || job.DownloadURL != "#" {
		t.Errorf("Empty update mutated the job: %+v", job)
	}
}

func TestStatusUpdate(t *testing.T) {
	update := StatusUpdate(JobStatusFailed)
	if update.Status == nil || *update.Status != JobStatusFailed {
		t.Error("StatusUpdate did not carry the status")
	}
	if update.DownloadURL != nil || update.Analysis != nil || update.SalesAnalysis != nil {
		t.Error("StatusUpdate must only set the status")
	}
}

func TestApplySalesAnalysis(t *testing.T) {
	job := ReportJob{Type: ReportTypeSales, Status: JobStatusReady}
	metrics := &SalesMetrics{TotalSales: 160, TotalOrders: 2}

	job.Apply(JobUpdate{SalesAnalysis: metrics})

	if job.SalesAnalysis == nil || job.SalesAnalysis.TotalSales != 160 {
		t.Errorf("Sales analysis not applied: %+v", job.SalesAnalysis)
	}
	if job.Analysis != nil {
		t.Error("Order analysis must stay untouched")
	}
}

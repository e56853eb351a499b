package models

// ReportType identifies which EasyEcom report a job generates.
type ReportType string

const (
	ReportTypeStock ReportType = "STATUS_WISE_STOCK_REPORT"
	ReportTypeSales ReportType = "MINI_SALES_REPORT"
)

// Valid returns true for a known report type.
func (t ReportType) Valid() bool {
	return t == ReportTypeStock || t == ReportTypeSales
}

// JobStatus is the lifecycle state of a report job as shown to the UI.
//
// Transitions are one-way: Processing -> Ready or Processing -> Failed.
// A job that outlives the polling ceiling stays Processing indefinitely;
// the original dashboard behaved the same way and callers rely on it for
// manual resumption, so it is preserved here deliberately.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "Processing"
	JobStatusReady      JobStatus = "Ready"
	JobStatusFailed     JobStatus = "Failed"
)

// Terminal returns true once no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusReady || s == JobStatusFailed
}

// ReportJob is one asynchronous report-generation request tracked by an
// external report id and an opaque local id. The history store owns all
// mutation after creation; the poller is the sole writer of Status and
// DownloadURL.
type ReportJob struct {
	ID            string        `json:"id" badgerhold:"key"`
	ReportID      string        `json:"report_id"`
	Type          ReportType    `json:"type"`
	CreatedAt     string        `json:"created_at"` // Display string, set at submission time
	Status        JobStatus     `json:"status"`
	DownloadURL   string        `json:"download_url,omitempty"`
	DateRange     string        `json:"date_range,omitempty"`     // Sales reports only
	Analysis      *OrderMetrics `json:"analysis,omitempty"`       // Cached order analysis (stock reports)
	SalesAnalysis *SalesMetrics `json:"sales_analysis,omitempty"` // Cached sales analysis (sales reports)
}

// JobUpdate carries partial field updates applied by the history store.
// Nil fields are left untouched.
type JobUpdate struct {
	Status        *JobStatus
	DownloadURL   *string
	Analysis      *OrderMetrics
	SalesAnalysis *SalesMetrics
}

// Apply copies the non-nil fields of the update onto the job.
func (j *ReportJob) Apply(update JobUpdate) {
	if update.Status != nil {
		j.Status = *update.Status
	}
	if update.DownloadURL != nil {
		j.DownloadURL = *update.DownloadURL
	}
	if update.Analysis != nil {
		j.Analysis = update.Analysis
	}
	if update.SalesAnalysis != nil {
		j.SalesAnalysis = update.SalesAnalysis
	}
}

// StatusUpdate builds a JobUpdate that only changes the status.
func StatusUpdate(status JobStatus) JobUpdate {
	return JobUpdate{Status: &status}
}

// ReadyUpdate builds the terminal update for a completed report.
func ReadyUpdate(downloadURL string) JobUpdate {
	status := JobStatusReady
	return JobUpdate{Status: &status, DownloadURL: &downloadURL}
}

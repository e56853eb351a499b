package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/relatus/internal/easyecom"
	"github.com/ternarybob/relatus/internal/models"
)

// fakeQueuer records submissions and returns canned report ids.
type fakeQueuer struct {
	stockCalls int
	salesCalls int
	lastStart  string
	lastEnd    string

	stockErr error
	salesErr error
}

func (f *fakeQueuer) QueueStockReport(ctx context.Context) (string, error) {
	f.stockCalls++
	if f.stockErr != nil {
		return "", f.stockErr
	}
	return "rpt-stock-1", nil
}

func (f *fakeQueuer) QueueSalesReport(ctx context.Context, startDate, endDate string) (string, error) {
	f.salesCalls++
	f.lastStart = startDate
	f.lastEnd = endDate
	if f.salesErr != nil {
		return "", f.salesErr
	}
	return "rpt-sales-1", nil
}

// stubChecker never reaches a terminal state. An hour-long tick interval
// keeps polling inert for the duration of these tests.
type stubChecker struct{}

func (stubChecker) CheckReportStatus(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
	return &easyecom.DownloadStatus{ReportStatus: "IN_PROGRESS"}, nil
}

func newTestService(queuer Queuer, history *memoryHistory) *Service {
	logger := arbor.NewLogger()
	poller := NewPollerManager(context.Background(), stubChecker{}, history, nil, logger, time.Hour, time.Hour)
	return NewService(queuer, history, nil, poller, logger)
}

func TestGenerateStockReport_RecordsProcessingJob(t *testing.T) {
	queuer := &fakeQueuer{}
	history := &memoryHistory{}
	svc := newTestService(queuer, history)

	job, err := svc.GenerateStockReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, queuer.stockCalls)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "rpt-stock-1", job.ReportID)
	assert.Equal(t, models.ReportTypeStock, job.Type)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Empty(t, job.DateRange)
	assert.NotEmpty(t, job.CreatedAt)

	stored, err := history.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ReportID, stored.ReportID)
}

func TestGenerateStockReport_QueueFailureLeavesNoRecord(t *testing.T) {
	queuer := &fakeQueuer{stockErr: errors.New("upstream down")}
	history := &memoryHistory{}
	svc := newTestService(queuer, history)

	_, err := svc.GenerateStockReport(context.Background())
	require.Error(t, err)

	jobs, err := history.ListProcessing(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGenerateSalesReport_ValidRange(t *testing.T) {
	queuer := &fakeQueuer{}
	history := &memoryHistory{}
	svc := newTestService(queuer, history)

	job, err := svc.GenerateSalesReport(context.Background(), SalesReportRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", queuer.lastStart)
	assert.Equal(t, "2024-01-31", queuer.lastEnd)
	assert.Equal(t, models.ReportTypeSales, job.Type)
	assert.Equal(t, "2024-01-01 to 2024-01-31", job.DateRange)
}

func TestGenerateSalesReport_ValidationRunsBeforeSubmission(t *testing.T) {
	tests := []struct {
		name string
		req  SalesReportRequest
	}{
		{"missing dates", SalesReportRequest{}},
		{"malformed start", SalesReportRequest{StartDate: "01/01/2024", EndDate: "2024-01-31"}},
		{"malformed end", SalesReportRequest{StartDate: "2024-01-01", EndDate: "Jan 31"}},
		{"start after end", SalesReportRequest{StartDate: "2024-02-01", EndDate: "2024-01-01"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			queuer := &fakeQueuer{}
			history := &memoryHistory{}
			svc := newTestService(queuer, history)

			_, err := svc.GenerateSalesReport(context.Background(), tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDateRange)
			// No network call, no record.
			assert.Zero(t, queuer.salesCalls)
			jobs, _ := history.ListProcessing(context.Background())
			assert.Empty(t, jobs)
		})
	}
}

func TestGenerateSalesReport_SameDayRangeIsValid(t *testing.T) {
	queuer := &fakeQueuer{}
	svc := newTestService(queuer, &memoryHistory{})

	_, err := svc.GenerateSalesReport(context.Background(), SalesReportRequest{
		StartDate: "2024-01-15",
		EndDate:   "2024-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, queuer.salesCalls)
}

func TestGenerateSalesReport_AppendFailureSurfaces(t *testing.T) {
	queuer := &fakeQueuer{}
	history := &memoryHistory{appendErr: errors.New("disk full")}
	svc := newTestService(queuer, history)

	_, err := svc.GenerateSalesReport(context.Background(), SalesReportRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record job")
}

func TestResume_ReenrollsProcessingJobs(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-a", "rpt-a")
	seedJob(t, history, "job-b", "rpt-b")
	require.NoError(t, history.Update(context.Background(), "job-b", models.StatusUpdate(models.JobStatusReady)))

	poller := NewPollerManager(context.Background(), stubChecker{}, history, nil, arbor.NewLogger(), time.Hour, time.Hour)
	svc := NewService(&fakeQueuer{}, history, nil, poller, arbor.NewLogger())

	require.NoError(t, svc.Resume(context.Background()))

	// Only the Processing job gets a polling loop.
	assert.Equal(t, 1, poller.ActiveCount())
}

package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/relatus/internal/easyecom"
	"github.com/ternarybob/relatus/internal/models"
)

// fakeChecker returns canned status responses.
type fakeChecker struct {
	checkFunc func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error)
}

func (f *fakeChecker) CheckReportStatus(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
	return f.checkFunc(ctx, reportID)
}

// memoryHistory is an in-memory HistoryStorage for poller and service tests.
type memoryHistory struct {
	mu   sync.Mutex
	jobs []*models.ReportJob

	appendErr error
}

func (m *memoryHistory) Append(ctx context.Context, job *models.ReportJob) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs = append([]*models.ReportJob{&copied}, m.jobs...)
	return nil
}

func (m *memoryHistory) Update(ctx context.Context, id string, update models.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			job.Apply(update)
		}
	}
	return nil
}

func (m *memoryHistory) List(ctx context.Context, reportType models.ReportType) ([]*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ReportJob
	for _, job := range m.jobs {
		if job.Type == reportType {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryHistory) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			copied := *job
			return &copied, nil
		}
	}
	return nil, errors.New("job not found: " + id)
}

func (m *memoryHistory) ListProcessing(ctx context.Context) ([]*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.JobStatusProcessing {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func seedJob(t *testing.T, history *memoryHistory, id, reportID string) {
	t.Helper()
	err := history.Append(context.Background(), &models.ReportJob{
		ID:       id,
		ReportID: reportID,
		Type:     models.ReportTypeStock,
		Status:   models.JobStatusProcessing,
	})
	require.NoError(t, err)
}

func jobStatus(t *testing.T, history *memoryHistory, id string) models.JobStatus {
	t.Helper()
	job, err := history.Get(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func TestPoller_CompletedReportMarksJobReady(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-1", "rpt-1")

	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			return &easyecom.DownloadStatus{
				ReportStatus: easyecom.ReportStatusCompleted,
				DownloadURL:  "https://files.example.com/rpt-1.zip",
			}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Second)
	poller.Start("job-1", "rpt-1")

	require.Eventually(t, func() bool {
		return jobStatus(t, history, "job-1") == models.JobStatusReady
	}, time.Second, 5*time.Millisecond)

	job, err := history.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/rpt-1.zip", job.DownloadURL)

	require.Eventually(t, func() bool {
		return poller.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_CompletedWithoutURLKeepsPolling(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-7", "rpt-7")

	var mu sync.Mutex
	calls := 0
	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				// Completed but the file is not published yet.
				return &easyecom.DownloadStatus{ReportStatus: easyecom.ReportStatusCompleted}, nil
			}
			return &easyecom.DownloadStatus{
				ReportStatus: easyecom.ReportStatusCompleted,
				DownloadURL:  "https://files.example.com/rpt-7.zip",
			}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Second)
	poller.Start("job-7", "rpt-7")

	require.Eventually(t, func() bool {
		return jobStatus(t, history, "job-7") == models.JobStatusReady
	}, time.Second, 5*time.Millisecond)

	job, err := history.Get(context.Background(), "job-7")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/rpt-7.zip", job.DownloadURL)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
}

func TestPoller_FailedReportMarksJobFailed(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-2", "rpt-2")

	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			return &easyecom.DownloadStatus{ReportStatus: easyecom.ReportStatusFailed}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Second)
	poller.Start("job-2", "rpt-2")

	require.Eventually(t, func() bool {
		return jobStatus(t, history, "job-2") == models.JobStatusFailed
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_TransientErrorRetries(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-3", "rpt-3")

	var mu sync.Mutex
	calls := 0
	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				return nil, errors.New("connection reset")
			}
			return &easyecom.DownloadStatus{
				ReportStatus: easyecom.ReportStatusCompleted,
				DownloadURL:  "https://files.example.com/rpt-3.zip",
			}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Second)
	poller.Start("job-3", "rpt-3")

	require.Eventually(t, func() bool {
		return jobStatus(t, history, "job-3") == models.JobStatusReady
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
}

func TestPoller_CeilingLeavesJobProcessing(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-4", "rpt-4")

	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			// Never reaches a terminal state.
			return &easyecom.DownloadStatus{ReportStatus: "IN_PROGRESS"}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, 30*time.Millisecond)
	poller.Start("job-4", "rpt-4")

	require.Eventually(t, func() bool {
		return poller.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)

	// The record is left untouched for manual resumption.
	assert.Equal(t, models.JobStatusProcessing, jobStatus(t, history, "job-4"))
}

func TestPoller_StartIsIdempotentPerJob(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-5", "rpt-5")

	block := make(chan struct{})
	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			<-block
			return &easyecom.DownloadStatus{ReportStatus: easyecom.ReportStatusCompleted, DownloadURL: "#"}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Second)
	poller.Start("job-5", "rpt-5")
	poller.Start("job-5", "rpt-5")
	poller.Start("job-5", "rpt-5")

	assert.Equal(t, 1, poller.ActiveCount())

	close(block)
	require.Eventually(t, func() bool {
		return poller.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_CancelStopsLoopWithoutTouchingRecord(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-6", "rpt-6")

	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			return &easyecom.DownloadStatus{ReportStatus: "IN_PROGRESS"}, nil
		},
	}

	poller := NewPollerManager(context.Background(), checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Minute)
	poller.Start("job-6", "rpt-6")
	poller.Cancel("job-6")

	require.Eventually(t, func() bool {
		return poller.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.JobStatusProcessing, jobStatus(t, history, "job-6"))
}

func TestPoller_BaseContextCancellationStopsAllLoops(t *testing.T) {
	history := &memoryHistory{}
	seedJob(t, history, "job-7", "rpt-7")
	seedJob(t, history, "job-8", "rpt-8")

	checker := &fakeChecker{
		checkFunc: func(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error) {
			return &easyecom.DownloadStatus{ReportStatus: "IN_PROGRESS"}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPollerManager(ctx, checker, history, nil, arbor.NewLogger(), 5*time.Millisecond, time.Minute)
	poller.Start("job-7", "rpt-7")
	poller.Start("job-8", "rpt-8")
	require.Equal(t, 2, poller.ActiveCount())

	cancel()

	require.Eventually(t, func() bool {
		return poller.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)
}

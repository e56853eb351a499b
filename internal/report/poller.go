package report

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/easyecom"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
)

const (
	// DefaultPollInterval is the tick period between status checks.
	DefaultPollInterval = 3 * time.Second
	// DefaultPollTimeout is the per-job polling ceiling.
	DefaultPollTimeout = 120 * time.Second
)

// StatusChecker is the slice of the EasyEcom client the poller needs.
type StatusChecker interface {
	CheckReportStatus(ctx context.Context, reportID string) (*easyecom.DownloadStatus, error)
}

// pollTask tracks one job's polling loop.
type pollTask struct {
	jobID    string
	reportID string
	cancel   context.CancelFunc
}

// PollerManager drives the status polling loop for every in-flight job.
// One goroutine per job, at most one per job id. Transient check failures
// are logged and retried on the next tick; a job that never reaches a
// terminal status within the ceiling is abandoned silently and its record
// stays Processing.
type PollerManager struct {
	baseCtx  context.Context
	checker  StatusChecker
	history  interfaces.HistoryStorage
	events   interfaces.EventService
	logger   arbor.ILogger
	interval time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	tasks map[string]*pollTask
}

// NewPollerManager creates a poller manager. Polling loops derive from
// baseCtx, not from the request that submitted the job, so they survive the
// HTTP round-trip and stop together on shutdown. interval is the tick
// period, timeout the polling ceiling per job.
func NewPollerManager(baseCtx context.Context, checker StatusChecker, history interfaces.HistoryStorage, events interfaces.EventService, logger arbor.ILogger, interval, timeout time.Duration) *PollerManager {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &PollerManager{
		baseCtx:  baseCtx,
		checker:  checker,
		history:  history,
		events:   events,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		tasks:    make(map[string]*pollTask),
	}
}

// Start begins polling for a job. Starting an already-polled job id is a
// no-op, so restart re-enrollment cannot double up on a live loop.
func (m *PollerManager) Start(jobID, reportID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[jobID]; exists {
		m.logger.Debug().Str("job_id", jobID).Msg("Poller already active for job")
		return
	}

	taskCtx, cancel := context.WithCancel(m.baseCtx)
	task := &pollTask{jobID: jobID, reportID: reportID, cancel: cancel}
	m.tasks[jobID] = task

	m.logger.Info().
		Str("job_id", jobID).
		Str("report_id", reportID).
		Msg("Polling started")

	go m.poll(taskCtx, task)
}

// Cancel stops polling for a job without touching its record.
func (m *PollerManager) Cancel(jobID string) {
	m.mu.Lock()
	task, exists := m.tasks[jobID]
	m.mu.Unlock()

	if exists {
		task.cancel()
	}
}

// ActiveCount returns the number of live polling loops.
func (m *PollerManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *PollerManager) remove(jobID string) {
	m.mu.Lock()
	if task, exists := m.tasks[jobID]; exists {
		task.cancel()
		delete(m.tasks, jobID)
	}
	m.mu.Unlock()
}

func (m *PollerManager) poll(ctx context.Context, task *pollTask) {
	defer m.remove(task.jobID)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	deadline := time.Now().Add(m.timeout)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Str("job_id", task.jobID).Msg("Polling cancelled")
			return
		case <-ticker.C:
			if time.Now().After(deadline) {
				// Deliberate: the record stays Processing so the job can be
				// resumed or retried by hand later.
				m.logger.Warn().
					Str("job_id", task.jobID).
					Str("report_id", task.reportID).
					Dur("ceiling", m.timeout).
					Msg("Polling ceiling reached, abandoning job")
				return
			}

			if done := m.checkOnce(ctx, task); done {
				return
			}
		}
	}
}

// checkOnce performs one status check. Returns true when the job reached a
// terminal state and polling should stop.
func (m *PollerManager) checkOnce(ctx context.Context, task *pollTask) bool {
	status, err := m.checker.CheckReportStatus(ctx, task.reportID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.logger.Warn().
			Err(err).
			Str("job_id", task.jobID).
			Str("report_id", task.reportID).
			Msg("Status check failed, will retry")
		return false
	}

	switch status.ReportStatus {
	case easyecom.ReportStatusCompleted:
		if status.DownloadURL == "" {
			// Completed without a download URL means the file is not
			// published yet; keep polling until it appears.
			m.logger.Debug().
				Str("job_id", task.jobID).
				Str("report_id", task.reportID).
				Msg("Report completed but download URL not yet available")
			return false
		}
		m.applyUpdate(ctx, task.jobID, models.ReadyUpdate(status.DownloadURL))
		m.logger.Info().
			Str("job_id", task.jobID).
			Str("report_id", task.reportID).
			Msg("Report ready")
		return true
	case easyecom.ReportStatusFailed:
		m.applyUpdate(ctx, task.jobID, models.StatusUpdate(models.JobStatusFailed))
		m.logger.Warn().
			Str("job_id", task.jobID).
			Str("report_id", task.reportID).
			Msg("Report generation failed")
		return true
	default:
		return false
	}
}

func (m *PollerManager) applyUpdate(ctx context.Context, jobID string, update models.JobUpdate) {
	if err := m.history.Update(ctx, jobID, update); err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to update job record")
		return
	}
	if m.events != nil {
		_ = m.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobUpdated,
			Payload: map[string]interface{}{"job_id": jobID},
		})
	}
}

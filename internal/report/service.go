// Package report owns the report job lifecycle: submission to EasyEcom,
// history recording, and status polling until a terminal state.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/common"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
)

const dateLayout = "2006-01-02"

// ErrInvalidDateRange marks request validation failures so callers can map
// them to a client error rather than an upstream one.
var ErrInvalidDateRange = errors.New("invalid date range")

// createdAtLayout is the display format stored on the record at submission
// time. History rows render it verbatim.
const createdAtLayout = "2006-01-02 15:04:05"

// SalesReportRequest carries the validated date range for a sales report.
type SalesReportRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// Queuer is the slice of the EasyEcom client the service submits through.
type Queuer interface {
	QueueStockReport(ctx context.Context) (string, error)
	QueueSalesReport(ctx context.Context, startDate, endDate string) (string, error)
}

// Service creates report jobs and enrolls them with the poller.
type Service struct {
	client   Queuer
	history  interfaces.HistoryStorage
	events   interfaces.EventService
	poller   *PollerManager
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates a report service
func NewService(client Queuer, history interfaces.HistoryStorage, events interfaces.EventService, poller *PollerManager, logger arbor.ILogger) *Service {
	return &Service{
		client:   client,
		history:  history,
		events:   events,
		poller:   poller,
		validate: validator.New(),
		logger:   logger,
	}
}

// GenerateStockReport queues a stock report and records the new job. A
// submission failure leaves no record behind.
func (s *Service) GenerateStockReport(ctx context.Context) (*models.ReportJob, error) {
	reportID, err := s.client.QueueStockReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to queue stock report: %w", err)
	}

	return s.record(ctx, reportID, models.ReportTypeStock, "")
}

// GenerateSalesReport validates the date range, queues a sales report, and
// records the new job. Validation runs before any network call.
func (s *Service) GenerateSalesReport(ctx context.Context, req SalesReportRequest) (*models.ReportJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidDateRange, req.StartDate, req.EndDate)
	}

	reportID, err := s.client.QueueSalesReport(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to queue sales report: %w", err)
	}

	dateRange := fmt.Sprintf("%s to %s", req.StartDate, req.EndDate)
	return s.record(ctx, reportID, models.ReportTypeSales, dateRange)
}

func (s *Service) record(ctx context.Context, reportID string, reportType models.ReportType, dateRange string) (*models.ReportJob, error) {
	job := &models.ReportJob{
		ID:        common.NewJobID(),
		ReportID:  reportID,
		Type:      reportType,
		CreatedAt: time.Now().Format(createdAtLayout),
		Status:    models.JobStatusProcessing,
		DateRange: dateRange,
	}

	if err := s.history.Append(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("report_id", reportID).
		Str("type", string(reportType)).
		Msg("Report job created")

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobCreated,
			Payload: job,
		})
	}

	s.poller.Start(job.ID, job.ReportID)
	return job, nil
}

// Resume re-enrolls every Processing job with the poller. Called once at
// startup; already-enrolled jobs are skipped by the poller itself.
func (s *Service) Resume(ctx context.Context) error {
	jobs, err := s.history.ListProcessing(ctx)
	if err != nil {
		return fmt.Errorf("failed to list processing jobs: %w", err)
	}

	for _, job := range jobs {
		s.poller.Start(job.ID, job.ReportID)
	}

	if len(jobs) > 0 {
		s.logger.Info().Int("count", len(jobs)).Msg("Resumed polling for in-flight jobs")
	}

	return nil
}

package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// Partition keys mirror the browser-era storage layout so exported
// histories stay recognizable.
const (
	stockHistoryKey = "stock history"
	salesHistoryKey = "sales history"
)

// historyPartition is one report type's job list, persisted whole on every
// mutation, most recent first.
type historyPartition struct {
	Key  string `badgerhold:"key"`
	Jobs []models.ReportJob
}

// HistoryStorage implements the HistoryStorage interface for Badger
type HistoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewHistoryStorage creates a new HistoryStorage instance
func NewHistoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HistoryStorage {
	return &HistoryStorage{
		db:     db,
		logger: logger,
	}
}

func partitionKey(reportType models.ReportType) (string, error) {
	switch reportType {
	case models.ReportTypeStock:
		return stockHistoryKey, nil
	case models.ReportTypeSales:
		return salesHistoryKey, nil
	default:
		return "", fmt.Errorf("unknown report type: %s", reportType)
	}
}

func (s *HistoryStorage) load(key string) (*historyPartition, error) {
	var partition historyPartition
	if err := s.db.Store().Get(key, &partition); err != nil {
		if err == badgerhold.ErrNotFound {
			return &historyPartition{Key: key}, nil
		}
		return nil, fmt.Errorf("failed to load history partition %q: %w", key, err)
	}
	return &partition, nil
}

func (s *HistoryStorage) save(partition *historyPartition) error {
	if err := s.db.Store().Upsert(partition.Key, partition); err != nil {
		return fmt.Errorf("failed to save history partition %q: %w", partition.Key, err)
	}
	return nil
}

// Append head-inserts the job into its type partition.
func (s *HistoryStorage) Append(ctx context.Context, job *models.ReportJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	key, err := partitionKey(job.Type)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition, err := s.load(key)
	if err != nil {
		return err
	}

	partition.Jobs = append([]models.ReportJob{*job}, partition.Jobs...)

	if err := s.save(partition); err != nil {
		return err
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Msg("Job appended to history")
	return nil
}

// Update applies the changes to a matching record in both partitions. Absent
// ids are a silent no-op.
func (s *HistoryStorage) Update(ctx context.Context, id string, update models.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{stockHistoryKey, salesHistoryKey} {
		partition, err := s.load(key)
		if err != nil {
			return err
		}

		changed := false
		for i := range partition.Jobs {
			if partition.Jobs[i].ID != id {
				continue
			}
			partition.Jobs[i].Apply(update)
			changed = true
		}

		if changed {
			if err := s.save(partition); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns a copy of the partition for one report type.
func (s *HistoryStorage) List(ctx context.Context, reportType models.ReportType) ([]*models.ReportJob, error) {
	key, err := partitionKey(reportType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition, err := s.load(key)
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.ReportJob, len(partition.Jobs))
	for i := range partition.Jobs {
		job := partition.Jobs[i]
		jobs[i] = &job
	}
	return jobs, nil
}

// Get searches both partitions for an id.
func (s *HistoryStorage) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{stockHistoryKey, salesHistoryKey} {
		partition, err := s.load(key)
		if err != nil {
			return nil, err
		}
		for i := range partition.Jobs {
			if partition.Jobs[i].ID == id {
				job := partition.Jobs[i]
				return &job, nil
			}
		}
	}
	return nil, fmt.Errorf("job not found: %s", id)
}

// ListProcessing returns every non-terminal job across both partitions.
func (s *HistoryStorage) ListProcessing(ctx context.Context) ([]*models.ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*models.ReportJob
	for _, key := range []string{stockHistoryKey, salesHistoryKey} {
		partition, err := s.load(key)
		if err != nil {
			return nil, err
		}
		for i := range partition.Jobs {
			if partition.Jobs[i].Status == models.JobStatusProcessing {
				job := partition.Jobs[i]
				jobs = append(jobs, &job)
			}
		}
	}
	return jobs, nil
}

package interfaces

import (
	"context"

	"github.com/ternarybob/relatus/internal/models"
)

// HistoryStorage is the durable, type-partitioned log of report jobs.
// Append and Update serialize internally; reads return copies so callers
// never observe in-place mutation.
type HistoryStorage interface {
	// Append places a new record at the head of its type partition,
	// preserving most-recent-first order.
	Append(ctx context.Context, job *models.ReportJob) error

	// Update applies the non-nil fields to the record with the given id in
	// both partitions. A no-op when no record matches.
	Update(ctx context.Context, id string, update models.JobUpdate) error

	// List returns the partition for one report type, most recent first.
	List(ctx context.Context, reportType models.ReportType) ([]*models.ReportJob, error)

	// Get looks an id up across both partitions.
	Get(ctx context.Context, id string) (*models.ReportJob, error)

	// ListProcessing returns every record still in Processing state across
	// both partitions, used to re-enroll pollers after a restart.
	ListProcessing(ctx context.Context) ([]*models.ReportJob, error)
}

// SettingsStorage persists the single user-adjustable settings record.
type SettingsStorage interface {
	// Load returns the persisted settings, or nil when none were saved yet.
	Load(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// StorageManager owns the database connection and the storages built on it.
type StorageManager interface {
	History() HistoryStorage
	Settings() SettingsStorage

	// RunValueLogGC triggers one round of Badger value-log garbage
	// collection. Returns badger.ErrNoRewrite when nothing was reclaimed.
	RunValueLogGC() error

	Close() error
}

package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

const settingsKey = "app config"

// settingsRecord wraps the settings for badgerhold keyed storage.
type settingsRecord struct {
	Key      string `badgerhold:"key"`
	Settings models.Settings
}

// SettingsStorage implements the SettingsStorage interface for Badger
type SettingsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSettingsStorage creates a new SettingsStorage instance
func NewSettingsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SettingsStorage {
	return &SettingsStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns the persisted settings, or nil when nothing was saved yet.
func (s *SettingsStorage) Load(ctx context.Context) (*models.Settings, error) {
	var record settingsRecord
	if err := s.db.Store().Get(settingsKey, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	settings := record.Settings
	return &settings, nil
}

// Save overwrites the persisted settings record.
func (s *SettingsStorage) Save(ctx context.Context, settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings are required")
	}
	record := settingsRecord{Key: settingsKey, Settings: *settings}
	if err := s.db.Store().Upsert(settingsKey, &record); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Debug().Msg("Settings saved")
	return nil
}

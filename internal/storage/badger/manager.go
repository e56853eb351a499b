package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/common"
	"github.com/ternarybob/relatus/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	history  interfaces.HistoryStorage
	settings interfaces.SettingsStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		history:  NewHistoryStorage(db, logger),
		settings: NewSettingsStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// History returns the job history storage interface
func (m *Manager) History() interfaces.HistoryStorage {
	return m.history
}

// Settings returns the settings storage interface
func (m *Manager) Settings() interfaces.SettingsStorage {
	return m.settings
}

// RunValueLogGC runs one round of Badger value-log garbage collection.
// Badger returns ErrNoRewrite when there was nothing to reclaim; callers
// treat that as a clean result.
func (m *Manager) RunValueLogGC() error {
	db := m.db.Badger()
	if db == nil {
		return fmt.Errorf("database is not open")
	}
	return db.RunValueLogGC(0.5)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Package scheduler runs periodic database maintenance. The history store
// rewrites whole partitions on every mutation, so the Badger value log
// accumulates garbage quickly; a cron-driven GC pass keeps it bounded.
package scheduler

import (
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/interfaces"
)

// Service schedules storage maintenance with robfig/cron.
type Service struct {
	storage interfaces.StorageManager
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool
}

// NewService creates a new maintenance scheduler
func NewService(storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the GC job and begins the scheduler. schedule accepts
// standard cron expressions and the @every form.
func (s *Service) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if schedule == "" {
		schedule = "@every 30m"
	}

	if _, err := s.cron.AddFunc(schedule, s.runValueLogGC); err != nil {
		return fmt.Errorf("failed to add GC job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Msg("Maintenance scheduler started")

	return nil
}

// Stop halts the scheduler
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Maintenance scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runValueLogGC runs GC rounds until Badger reports nothing left to reclaim.
func (s *Service) runValueLogGC() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in value log GC")
		}
	}()

	rounds := 0
	for {
		err := s.storage.RunValueLogGC()
		if err == nil {
			rounds++
			continue
		}
		if err == badgerdb.ErrNoRewrite {
			break
		}
		s.logger.Warn().Err(err).Msg("Value log GC failed")
		return
	}

	s.logger.Debug().
		Int("rounds", rounds).
		Msg("Value log GC completed")
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/relatus/internal/common"
	"github.com/ternarybob/relatus/internal/easyecom"
	"github.com/ternarybob/relatus/internal/fetch"
	"github.com/ternarybob/relatus/internal/handlers"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
	"github.com/ternarybob/relatus/internal/report"
	"github.com/ternarybob/relatus/internal/services/events"
	"github.com/ternarybob/relatus/internal/services/scheduler"
	"github.com/ternarybob/relatus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	Client        *easyecom.Client
	Fetcher       *fetch.Fetcher
	Poller        *report.PollerManager
	ReportService *report.Service
	Scheduler     *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ReportHandler   *handlers.ReportHandler
	AnalysisHandler *handlers.AnalysisHandler
	ProxyHandler    *handlers.ProxyHandler
	SettingsHandler *handlers.SettingsHandler
	WSHandler       *handlers.WebSocketHandler
	WSLogWriter     *handlers.WebSocketWriter
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	// Storage first: everything downstream reads or writes through it
	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger, &cfg.WebSocket)

	wsWriter, err := handlers.NewWebSocketWriter(app.WSHandler, arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}, &cfg.WebSocket)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize WebSocket log writer")
	} else {
		app.WSLogWriter = wsWriter
	}

	app.Client = easyecom.NewClient(cfg.EasyEcom, easyecom.WithLogger(logger))
	app.Fetcher = fetch.New(cfg.EasyEcom.RelayURL, logger)

	// Persisted settings override the file/env configuration
	if stored, err := storageManager.Settings().Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load persisted settings")
	} else if stored != nil {
		app.applySettings(*stored)
		logger.Info().Msg("Applied persisted settings")
	}

	app.Poller = report.NewPollerManager(
		ctx,
		app.Client,
		storageManager.History(),
		app.EventService,
		logger,
		parseDuration(cfg.Poller.Interval, report.DefaultPollInterval),
		parseDuration(cfg.Poller.Timeout, report.DefaultPollTimeout),
	)
	app.ReportService = report.NewService(
		app.Client,
		storageManager.History(),
		app.EventService,
		app.Poller,
		logger,
	)

	app.initHandlers()

	// Jobs still Processing from a previous run go back on the poller
	if err := app.ReportService.Resume(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to resume in-flight jobs")
	}

	if cfg.Scheduler.Enabled {
		app.Scheduler = scheduler.NewService(storageManager, logger)
		if err := app.Scheduler.Start(cfg.Scheduler.GCSchedule); err != nil {
			logger.Warn().Err(err).Msg("Failed to start maintenance scheduler")
		}
	}

	logger.Info().
		Bool("simulation", cfg.EasyEcom.SimulationMode).
		Str("environment", cfg.Environment).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, a.StorageManager.History(), a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.StorageManager.History(), a.EventService, a.Fetcher, a.Logger)
	a.ProxyHandler = handlers.NewProxyHandler(a.Logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.StorageManager.Settings(), a.Config, a.applySettings, a.Logger)
}

// applySettings pushes persisted settings onto the live client and fetcher.
func (a *App) applySettings(settings models.Settings) {
	a.Client.ApplySettings(settings)
	a.Fetcher.SetRelayURL(settings.RelayURL)
}

// parseDuration parses a config duration string, falling back to the given
// default when the value is empty or malformed.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Context returns the application lifetime context.
func (a *App) Context() context.Context {
	return a.ctx
}

// Close shuts down all application components in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	// Cancel first so polling loops stop writing before storage closes
	a.cancelCtx()

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.WSLogWriter != nil {
		if err := a.WSLogWriter.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket log writer")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}

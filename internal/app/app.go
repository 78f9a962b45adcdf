package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/events"
	"github.com/ternarybob/venator/internal/handlers"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/scheduler"
	"github.com/ternarybob/venator/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Dispatch pipeline
	EventHub         *events.Hub
	JobRegistry      *scheduler.Registry
	WorkerGate       *scheduler.Gate
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	LeadHandler    *handlers.LeadHandler
	AccountHandler *handlers.AccountHandler
	JobHandler     *handlers.JobHandler
	ScrapeHandler  *handlers.ScrapeHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires the application together: storage first, then the dispatch
// pipeline, then the HTTP handlers over both.
func New(config *common.Config, logger arbor.ILogger, configPath string) (*App, error) {
	storageManager, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	hub := events.NewHub(logger)
	registry := scheduler.NewRegistry()
	gate := scheduler.NewGate()
	spawner := scheduler.NewProcessSpawner(config.Worker.Binary, configPath, logger)
	schedulerService := scheduler.NewService(config, logger, storageManager, registry, gate, spawner, hub)

	app := &App{
		Config:           config,
		Logger:           logger,
		StorageManager:   storageManager,
		EventHub:         hub,
		JobRegistry:      registry,
		WorkerGate:       gate,
		SchedulerService: schedulerService,

		APIHandler:     handlers.NewAPIHandler(config, storageManager, logger),
		LeadHandler:    handlers.NewLeadHandler(storageManager.LeadStorage(), storageManager.ProfileStorage(), logger),
		AccountHandler: handlers.NewAccountHandler(storageManager.AccountStorage(), logger),
		JobHandler:     handlers.NewJobHandler(registry, logger),
		ScrapeHandler:  handlers.NewScrapeHandler(schedulerService, logger),
		WSHandler:      handlers.NewWebSocketHandler(hub, logger),
	}
	return app, nil
}

// Start launches the background services.
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Shutdown stops background services and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.SchedulerService.Stop()
	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Application shut down")
	return nil
}

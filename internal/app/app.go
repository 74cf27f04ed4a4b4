package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/handlers"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/jobs"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/crawler"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/events"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/llm"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/scheduler"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/webhook"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/workers"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	JobStore interfaces.JobStore

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService // nil unless [scheduler] is enabled

	// Job execution
	WorkerPool *workers.Pool
	Pipeline   *jobs.Pipeline

	// External collaborators
	Discovery  interfaces.DiscoveryGateway
	LLMService interfaces.LLMService
	Enricher   *llm.Enricher
	Webhook    *webhook.Client

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	JobHandler       *handlers.JobHandler
	WSHandler        *handlers.WebSocketHandler
	SchedulerHandler *handlers.SchedulerHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize storage
	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe logger to events")
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("llm_provider", app.LLMService.Name()).
		Bool("javascript", cfg.Crawler.EnableJavaScript).
		Int("workers", cfg.Queue.Workers).
		Bool("scheduler_enabled", app.SchedulerService != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the job store selected by [storage] type
func (a *App) initStorage() error {
	store, err := storage.NewJobStore(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.JobStore = store
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	// 1. Worker pool bounds the jobs in flight
	a.WorkerPool = workers.NewPool(cfg.Queue.Workers, cfg.Queue.Capacity, a.Logger)
	a.WorkerPool.Start()

	// 2. Book source
	a.Discovery = crawler.NewDiscovery(cfg.Crawler, a.Logger)

	// 3. LLM enrichment; a missing key degrades every book to the fallback values
	service, err := llm.NewLLMService(context.Background(), cfg, a.Logger)
	if err != nil {
		a.Logger.Warn().
			Err(err).
			Str("provider", string(cfg.LLM.Provider)).
			Msg("LLM provider is not configured, books will receive fallback summaries")
		service = llm.NewUnavailableService(string(cfg.LLM.Provider), err)
	}
	a.LLMService = service
	a.Enricher = llm.NewEnricherFromConfig(service, cfg, a.Logger)

	// 4. Delivery
	a.Webhook = webhook.NewClient(cfg.Webhook.URL, common.ParseDuration(cfg.Webhook.Timeout, 30*time.Second), a.Logger)
	if !a.Webhook.Configured() {
		a.Logger.Warn().Msg("MAKE_WEBHOOK_URL is not set, results will not be delivered")
	}

	// 5. Pipeline
	a.Pipeline = jobs.NewPipeline(jobs.PipelineDeps{
		Store:     a.JobStore,
		Discovery: a.Discovery,
		Enricher:  a.Enricher,
		Delivery:  a.Webhook,
		Events:    a.EventService,
		Pool:      a.WorkerPool,
		Logger:    a.Logger,
	}, jobs.PipelineConfig{
		BatchSize:   cfg.Pipeline.BatchSize,
		BatchDelay:  common.ParseDuration(cfg.Pipeline.BatchDelay, time.Second),
		DetailDelay: common.ParseDuration(cfg.Crawler.DetailDelay, 500*time.Millisecond),
	})

	// 6. Scheduler
	if cfg.Scheduler.Enabled {
		schedulerService := scheduler.NewService(a.Pipeline, cfg.Scheduler.Themes, a.Logger)
		if err := schedulerService.Start(cfg.Scheduler.Schedule); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		a.SchedulerService = schedulerService
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Pipeline, a.JobStore, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
}

// Close stops intake first, then running jobs, then releases storage
func (a *App) Close() error {
	// Stop scheduler service
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Running jobs observe cancellation and record their failure
	if a.WorkerPool != nil {
		a.WorkerPool.Shutdown()
		a.Logger.Info().Msg("Worker pool stopped")
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	// Close LLM service
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage
	if a.JobStore != nil {
		if err := a.JobStore.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

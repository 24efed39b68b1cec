package app

import (
	"context"

	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/controllers"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/events"
	"github.com/gamedjinn/sync/internal/handlers/middleware"
	"github.com/gamedjinn/sync/internal/jobs"
	"github.com/gamedjinn/sync/internal/logger"
	"github.com/gamedjinn/sync/internal/platforms"
	"github.com/gamedjinn/sync/internal/platforms/steam"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"
	"github.com/gamedjinn/sync/internal/websockets"
	"github.com/gamedjinn/sync/internal/worker"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Controllers controllers.Controllers

	// Services
	TransactionService  *services.TransactionService
	RateLimiterService  *services.RateLimiterService
	JobQueueService     *services.JobQueueService
	SyncStateService    *services.SyncStateService
	ProgressTracker     *services.ProgressTrackerService
	IdentityResolver    *services.IdentityResolverService
	CatalogService      *services.CatalogService
	SyncWorkerService   *services.SyncWorkerService
	SchedulerService    *services.SchedulerService

	Repositories repositories.Repository

	workerPool *worker.Pool
	cancel     context.CancelFunc
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	repos := repositories.New(db)

	transactionService := services.NewTransactionService(db)
	rl := services.NewRateLimiterService(db.Cache.RateLimit)
	jq := services.NewJobQueueService(db.Cache.JobQueue)
	ss := services.NewSyncStateService(db.Cache.SyncCheckpoint, repos.UserLibrary)
	pt := services.NewProgressTrackerService(eventBus, db.Cache.Progress)
	gir := services.NewIdentityResolverService(repos.Game, repos.GameMatch)
	cs := services.NewCatalogService(
		repos.Platform,
		repos.UserLibrary,
		repos.Game,
		repos.UserGame,
		repos.Achievement,
		repos.SyncOperation,
		gir,
	)

	adapters := map[string]platforms.Adapter{
		"steam": steam.New(db.Cache.General),
	}
	sw := services.NewSyncWorkerService(repos.UserLibrary, adapters, rl, ss, pt, cs, jq)

	schedulerService := services.NewSchedulerService()

	websocketManager, err := websockets.New(eventBus, config)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	appMiddleware := middleware.New(db, eventBus, config)
	appControllers := controllers.New(repos, cs, jq, ss, pt)

	ctx, cancel := context.WithCancel(context.Background())

	workerPool := worker.NewPool(jq, sw, config.Workers)
	workerPool.Start(ctx)

	if config.SchedulerEnabled {
		scheduledSyncJob := jobs.NewScheduledSyncJob(repos.UserLibrary, jq, services.Daily)
		if err := schedulerService.AddJob(scheduledSyncJob); err != nil {
			cancel()
			return &App{}, log.Err("failed to register scheduled sync job", err)
		}
		if err := schedulerService.Start(ctx); err != nil {
			cancel()
			return &App{}, log.Err("failed to start scheduler", err)
		}
		log.Info("registered scheduled sync job with scheduler")
	}

	app := &App{
		Database:           db,
		Config:             config,
		Middleware:         appMiddleware,
		Controllers:        appControllers,
		TransactionService: transactionService,
		RateLimiterService: rl,
		JobQueueService:    jq,
		SyncStateService:   ss,
		ProgressTracker:    pt,
		IdentityResolver:   gir,
		CatalogService:     cs,
		SyncWorkerService:  sw,
		SchedulerService:   schedulerService,
		Repositories:       repos,
		Websocket:          websocketManager,
		EventBus:           eventBus,
		workerPool:         workerPool,
		cancel:             cancel,
	}

	if err := app.validate(); err != nil {
		cancel()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.TransactionService,
		a.RateLimiterService,
		a.JobQueueService,
		a.SyncStateService,
		a.ProgressTracker,
		a.IdentityResolver,
		a.CatalogService,
		a.SyncWorkerService,
		a.SchedulerService,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.cancel != nil {
		a.cancel()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.SchedulerService != nil {
		if closeErr := a.SchedulerService.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}

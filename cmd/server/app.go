package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/events"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/platform/gemini"
	"github.com/mydudu/screening-api/internal/platform/postgres"
	"github.com/mydudu/screening-api/internal/service/auth"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/mydudu/screening-api/internal/store"
	"github.com/mydudu/screening-api/internal/task"
)

// purgeInterval is how often abandoned screenings are deleted.
const purgeInterval = 5 * time.Minute

// application holds the wired dependencies of the server.
type application struct {
	config           *config.Config
	logger           *slog.Logger
	db               *sql.DB
	sessionStore     store.SessionStore
	articleStore     store.ArticleStore
	jwtService       auth.JWTService
	screeningService screening.Service
	eventEmitter     *events.InMemoryEventEmitter
	taskRunner       *task.TaskRunner
}

// newApplication builds the service graph on top of an open database.
// Article generation is wired only when the LLM is enabled.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		sessionStore: postgres.NewPostgresSessionStore(db, logger),
		articleStore: postgres.NewPostgresArticleStore(db, logger),
		eventEmitter: events.NewInMemoryEventEmitter(logger),
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	bundle, err := loadKnowledge(cfg.Screening, logger)
	if err != nil {
		return nil, err
	}

	svc, err := screening.NewService(
		db,
		app.sessionStore,
		app.articleStore,
		bundle,
		cfg.Screening,
		cfg.Privacy,
		logger,
		screening.WithEventEmitter(app.eventEmitter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create screening service: %w", err)
	}
	app.screeningService = svc

	if cfg.LLM.Enabled {
		if err := app.setupTaskRunner(ctx); err != nil {
			return nil, err
		}
	} else {
		logger.Info("article generation disabled")
	}

	return app, nil
}

// loadKnowledge reads the configured knowledge base, or the embedded one
// when no path is set.
func loadKnowledge(cfg config.ScreeningConfig, logger *slog.Logger) (*knowledge.Bundle, error) {
	if cfg.KnowledgeBasePath == "" {
		bundle, err := knowledge.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded knowledge base: %w", err)
		}
		logger.Info("using embedded knowledge base")
		return bundle, nil
	}

	bundle, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %q: %w", cfg.KnowledgeBasePath, err)
	}
	logger.Info("knowledge base loaded", "path", cfg.KnowledgeBasePath)
	return bundle, nil
}

// setupTaskRunner wires the article generator, the task runner and the
// screening.completed subscription, then starts the runner.
func (app *application) setupTaskRunner(ctx context.Context) error {
	generator, err := gemini.NewGenerator(ctx, app.logger, app.config.LLM)
	if err != nil {
		return fmt.Errorf("failed to create article generator: %w", err)
	}

	factory, err := task.NewEducationArticleTaskFactory(
		app.sessionStore,
		app.articleStore,
		generator,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create task factory: %w", err)
	}

	runnerCfg := task.DefaultTaskRunnerConfig()
	if app.config.Task.WorkerCount > 0 {
		runnerCfg.WorkerCount = app.config.Task.WorkerCount
	}
	if app.config.Task.QueueSize > 0 {
		runnerCfg.QueueSize = app.config.Task.QueueSize
	}

	taskStore := postgres.NewPostgresTaskStore(app.db, app.logger)
	app.taskRunner = task.NewTaskRunner(taskStore, factory, runnerCfg, app.logger)
	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	app.eventEmitter.Subscribe(
		events.TypeScreeningCompleted,
		task.NewScreeningCompletedHandler(factory, app.taskRunner, app.logger),
	)
	return nil
}

// Run serves HTTP until ctx is cancelled, then releases every resource.
func (app *application) Run(ctx context.Context) error {
	go app.purgeExpired(ctx)
	return app.startHTTPServer(ctx, app.setupRouter())
}

// purgeExpired periodically deletes screenings that were abandoned before
// reaching a result.
func (app *application) purgeExpired(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.screeningService.PurgeExpired(ctx); err != nil {
				app.logger.Error("failed to purge expired screenings", "error", err)
			}
		}
	}
}

// cleanup stops background work and closes the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.logger.Info("stopping task runner")
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}

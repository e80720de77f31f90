// Package app wires configuration, storage and services into a runnable
// job subsystem shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/config"
	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/jobs"
	"github.com/forgo/modhub/internal/logger"
	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/repository"
	"github.com/forgo/modhub/internal/service"
)

// App holds the wired components
type App struct {
	DB        database.Database
	JobRepo   *repository.JobRepository
	TokenRepo *repository.UserTokenRepository
	Vault     *service.TokenVault
	Jobs      *service.JobService
	Executor  *service.Executor
	Sync      *service.ReleaseSyncService
	Scheduler *jobs.ReleaseScheduler
	Log       *logrus.Logger
}

// New connects to the database and builds every component. Close releases
// the connection.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
	}).Info("connected to database")

	a, err := build(db, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func build(db database.Database, cfg *config.Config, log *logrus.Logger) (*App, error) {
	// Repositories
	jobRepo := repository.NewJobRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	releaseRepo := repository.NewReleaseRepository(db)
	syncConfigRepo := repository.NewSyncConfigRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tokenRepo := repository.NewUserTokenRepository(db)

	// GitHub
	ghClient, err := github.NewClient(github.ClientConfig{
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.APIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	var vault *service.TokenVault
	if cfg.GitHub.TokenKey != "" {
		vault, err = service.NewTokenVault(cfg.GitHub.TokenKey)
		if err != nil {
			return nil, err
		}
	}
	tokens := service.NewTokenResolver(service.TokenResolverConfig{
		Repo:     tokenRepo,
		Vault:    vault,
		Fallback: cfg.GitHub.Token,
		Logger:   logger.Component(log, "tokens"),
	})

	// Services
	audit := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	syncService := service.NewReleaseSyncService(service.ReleaseSyncServiceConfig{
		GitHub:      ghClient,
		Releases:    releaseRepo,
		Modules:     moduleRepo,
		SyncConfigs: syncConfigRepo,
		PerPage:     cfg.GitHub.ReleasesPerPage,
		Logger:      logger.Component(log, "release_sync"),
	})

	executor := service.NewExecutor(service.ExecutorConfig{
		JobRepo: jobRepo,
		Handlers: map[model.JobType]service.JobHandler{
			model.JobTypeScrapeReleases: service.NewScrapeHandler(service.ScrapeHandlerConfig{
				SyncConfigs: syncConfigRepo,
				Syncer:      syncService,
				Tokens:      tokens,
				Audit:       audit,
				ModuleDelay: cfg.Sync.ModuleDelay,
				StaleAfter:  cfg.Sync.StaleAfter,
				MaxModules:  cfg.Sync.MaxModules,
			}),
			model.JobTypeCleanup:           service.NewCleanupHandler(jobRepo, nil),
			model.JobTypeSyncGitHubConfigs: service.NewConfigSyncHandler(moduleRepo, syncConfigRepo, audit),
			model.JobTypeGenerateSlugs:     service.NewSlugHandler(moduleRepo),
		},
		Logger: logger.Component(log, "executor"),
	})

	jobService := service.NewJobService(jobRepo, executor, logger.Component(log, "jobs"))

	scheduler := jobs.NewReleaseScheduler(jobs.ReleaseSchedulerConfig{
		Queue:         jobRepo,
		Enqueuer:      jobService,
		Executor:      executor,
		Enabled:       cfg.Scheduler.Enabled,
		CheckInterval: cfg.Scheduler.JobCheckInterval,
		SyncInterval:  cfg.Scheduler.SyncInterval(),
		Logger:        logger.Component(log, "scheduler"),
	})

	return &App{
		DB:        db,
		JobRepo:   jobRepo,
		TokenRepo: tokenRepo,
		Vault:     vault,
		Jobs:      jobService,
		Executor:  executor,
		Sync:      syncService,
		Scheduler: scheduler,
		Log:       log,
	}, nil
}

// Close stops the scheduler and closes the database connection
func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.DB.Close()
}

// SetUserToken seals token and stores it as userID's GitHub token
func (a *App) SetUserToken(ctx context.Context, userID, token string) error {
	if a.Vault == nil {
		return fmt.Errorf("%w: GITHUB_TOKEN_KEY is not set", service.ErrInvalidVaultKey)
	}
	sealed, err := a.Vault.Seal(token)
	if err != nil {
		return err
	}
	return a.TokenRepo.Upsert(ctx, userID, sealed)
}

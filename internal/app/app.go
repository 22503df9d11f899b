// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/internal/bootstrap"
	"github.com/AccelByte/extend-completion-contest/internal/config"
	"github.com/AccelByte/extend-completion-contest/internal/server"
	"github.com/AccelByte/extend-completion-contest/pkg/datasync"
	"github.com/AccelByte/extend-completion-contest/pkg/handler"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	httpServer        *server.HTTPServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	store             *store.Store
	health            *state.HealthChecker
	contest           *bootstrap.Contest
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Redis (run-scoped and per-player locks)
// 2. Database (completion store, migrated on start)
// 3. Contest rule table (YAML configuration)
// 4. Tribute rule engine
// 5. Contest services (sync, monthly, yearly, random challenges)
//
// Servers and telemetry are only set up by SetupServers, so one-shot
// CLI commands do not bind ports.
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Initialize Redis
	// ============================================================
	redisClient, err := state.InitRedisClient(ctx, state.RedisOptions{
		Host:       cfg.RedisHost,
		Port:       cfg.RedisPort,
		Password:   cfg.RedisPassword,
		MaxRetries: cfg.RedisMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	app.redisClient = redisClient

	// ============================================================
	// Step 2: Initialize the database
	// ============================================================
	if err := app.initStore(); err != nil {
		app.Close()
		return nil, err
	}

	app.health = state.NewHealthChecker(redisClient)
	app.health.AddProbe("database", app.store.Ping)

	// ============================================================
	// Step 3: Load the contest rule table
	// ============================================================
	contestConfig, err := ruleset.LoadConfig(cfg.ContestConfigPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load contest config from %s: %w", cfg.ContestConfigPath, err)
	}
	logrus.Infof("loaded contest rule table %q from %s", contestConfig.Contest.Name, cfg.ContestConfigPath)

	// ============================================================
	// Step 4: Tribute rule engine
	// ============================================================
	ruleEngine, _, err := bootstrap.InitRuleEngine(contestConfig)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to init rule engine: %w", err)
	}

	// ============================================================
	// Step 5: Contest services
	// ============================================================
	fetcher := source.NewCollectionClient(cfg.SourceBaseURL, cfg.SourceTimeout)
	app.contest, err = bootstrap.InitContest(
		app.store,
		state.NewLocker(redisClient, cfg.LockTTL),
		contestConfig,
		ruleEngine,
		fetcher,
		datasync.Config{
			Concurrency: cfg.SyncConcurrency,
			MaxPages:    cfg.SourceMaxPages,
			MaxRetries:  cfg.SyncMaxRetries,
		},
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to init contest services: %w", err)
	}

	logrus.Info("application initialized successfully")
	return app, nil
}

func (a *App) initStore() error {
	db, err := store.Open(a.cfg.DBDriver, a.cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	a.store = store.New(db)
	logrus.Info("database migrated")
	return nil
}

// SetupServers builds the gRPC, HTTP and metrics servers and telemetry.
func (a *App) SetupServers(ctx context.Context) error {
	a.grpcServer = server.NewGRPCServer(a.cfg.GRPCPort, a.health)
	if err := a.grpcServer.Setup(); err != nil {
		return fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	h := handler.New(handler.Services{
		Store:        a.store,
		Synchronizer: a.contest.Synchronizer,
		Months:       a.contest.Months,
		Aggregator:   a.contest.Aggregator,
		Assigner:     a.contest.Assigner,
		Scorer:       a.contest.Scorer,
		Health:       a.health,
	})
	a.httpServer = server.NewHTTPServer(a.cfg.HTTPPort, h)
	if err := a.httpServer.Setup(a.cfg.Environment); err != nil {
		return fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	a.metricsServer = server.NewMetricsServer(a.cfg.MetricsPort, "/metrics")
	if err := a.metricsServer.Setup(); err != nil {
		return fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if a.cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, a.cfg.ServiceName, a.cfg.Environment, 0, a.cfg.ZipkinEndpoint)
		if err != nil {
			return fmt.Errorf("failed to setup telemetry: %w", err)
		}
		a.shutdownTelemetry = shutdownTelemetry
	}
	return nil
}

// Store returns the completion store.
func (a *App) Store() *store.Store {
	return a.store
}

// Contest returns the contest services.
func (a *App) Contest() *bootstrap.Contest {
	return a.contest
}

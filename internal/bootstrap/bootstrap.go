// Package bootstrap wires storage, model and services from configuration.
// The API server and the bulk generation CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zatekoja/nextbestaction/internal/adapters/cache"
	"github.com/zatekoja/nextbestaction/internal/adapters/database"
	"github.com/zatekoja/nextbestaction/internal/adapters/events"
	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	"github.com/zatekoja/nextbestaction/internal/adapters/memory"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/openai"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/redis"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	"github.com/zatekoja/nextbestaction/pkg/config"
)

// App holds the wired services and the resources they own
type App struct {
	Recommendations *services.RecommendationService
	Dashboard       *services.DashboardService
	EventBus        providers.EventBus

	closers []func() error
}

type storage struct {
	recommendations repositories.RecommendationRepository
	directory       repositories.HCPDirectory
	attribution     repositories.PrescriptionAttributionRepository
	catalog         repositories.CatalogRepository
	signals         repositories.SignalRepository
	settings        repositories.SettingsRepository
}

// New builds the application. metrics may be nil. On error every resource
// opened so far is released.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (_ *App, err error) {
	logger := observability.LoggerFromContext(ctx)
	app := &App{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	store, err := app.openStorage(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}

	var statsStore providers.OutcomeStatsStore
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		app.closers = append(app.closers, redisClient.Close)

		statsStore = cache.NewOutcomeStatsStore(redisClient)
		app.EventBus = events.NewRedisEventBus(redisClient)
		app.closers = append(app.closers, app.EventBus.Close)
		logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("outcome tallies and events backed by Redis")
	} else {
		statsStore = memory.NewOutcomeStatsStore()
		logger.Warn().Msg("Redis disabled; outcome tallies kept in memory and events not published")
	}

	rules, err := config.LoadComplianceRules(cfg.Compliance.RulesFile)
	if err != nil {
		return nil, err
	}

	var model providers.ModelProvider
	if cfg.Model.APIKey == "" {
		logger.Warn().Msg("MODEL_API_KEY is not set; every recommendation will use the fallback rule")
	} else {
		client, err := openai.NewClient(&cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize model client: %w", err)
		}
		app.closers = append(app.closers, func() error {
			client.Close()
			return nil
		})
		model = client
	}

	learning := services.NewOutcomeLearningService(statsStore)
	lifecycle := services.NewLifecycleService(store.recommendations, learning)
	if app.EventBus != nil {
		lifecycle.SetEventBus(app.EventBus)
	}

	app.Dashboard = services.NewDashboardService(store.directory, store.attribution, store.recommendations)
	app.Recommendations = services.NewRecommendationService(services.RecommendationServiceDeps{
		Assembler: services.NewContextAssembler(
			store.directory, store.catalog, store.signals, store.settings,
			services.AssemblerOptions{
				ContactHistorySize: cfg.Generation.ContactHistorySize,
				PrescriptionSize:   cfg.Generation.PrescriptionSize,
				MinSignalRelevance: cfg.Generation.MinSignalRelevance,
				MaxSignals:         cfg.Generation.MaxSignals,
			},
		),
		Generator: services.NewRecommendationGenerator(model, services.GeneratorOptions{
			ModelName:         cfg.Model.Model,
			Timeout:           cfg.Model.Timeout,
			RecentContactDays: cfg.Generation.RecentContactDays,
		}),
		Validator:   services.NewComplianceValidator(rules),
		Lifecycle:   lifecycle,
		Dashboard:   app.Dashboard,
		Learning:    learning,
		BulkWorkers: cfg.Generation.BulkWorkers,
	})

	return app, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*storage, error) {
	logger := observability.LoggerFromContext(ctx)

	if cfg.Storage == "memory" {
		recs := memory.NewRecommendationStore()
		directory := memory.NewDirectory(recs)
		directory.Load(fixtures.Demo(time.Now()))
		logger.Warn().Msg("using in-memory storage with the demo dataset")

		return &storage{
			recommendations: recs,
			directory:       directory,
			attribution:     directory,
			catalog:         directory,
			signals:         directory,
			settings:        directory,
		}, nil
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	a.closers = append(a.closers, pgClient.Close)

	if err := database.EnsureSchema(ctx, pgClient); err != nil {
		return nil, err
	}

	hcps := database.NewHCPAdapter(pgClient)
	catalog := database.NewCatalogAdapter(pgClient)
	return &storage{
		recommendations: database.NewRecommendationAdapter(pgClient, metrics),
		directory:       hcps,
		attribution:     hcps,
		catalog:         catalog,
		signals:         catalog,
		settings:        catalog,
	}, nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

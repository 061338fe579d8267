package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zatekoja/nextbestaction/internal/adapters/database"
	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	"github.com/zatekoja/nextbestaction/pkg/config"
	"github.com/zatekoja/nextbestaction/pkg/secrets"
)

func main() {
	// Secrets from Vault must land in the environment before config is read
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Environment)
	logger := observability.GetLogger()

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	if err := database.EnsureSchema(ctx, pgClient); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	seeder := database.NewSeedAdapter(pgClient)

	if os.Getenv("RESET_DB") == "true" {
		logger.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if err := seeder.Reset(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	ds := fixtures.Demo(time.Now())
	if err := seeder.Seed(ctx, ds); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed database")
	}

	logger.Info().
		Int("hcps", len(ds.HCPs)).
		Int("contacts", len(ds.Contacts)).
		Int("prescriptions", len(ds.Prescriptions)).
		Int("products", len(ds.Products)).
		Int("approved_content", len(ds.ApprovedContent)).
		Int("signals", len(ds.Signals)).
		Msg("seeding complete")
}

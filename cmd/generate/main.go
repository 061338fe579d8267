package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zatekoja/nextbestaction/internal/bootstrap"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	"github.com/zatekoja/nextbestaction/pkg/config"
	"github.com/zatekoja/nextbestaction/pkg/secrets"
)

func main() {
	var hcpList string
	var inputFile string
	var workers int

	flag.StringVar(&hcpList, "hcps", "", "Comma-separated HCP IDs to generate recommendations for")
	flag.StringVar(&inputFile, "file", "", "File with one HCP ID per line (- for stdin)")
	flag.IntVar(&workers, "workers", 0, "Concurrent generations (defaults to GENERATION_BULK_WORKERS)")
	flag.Parse()

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
	if workers > 0 {
		cfg.Generation.BulkWorkers = workers
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-generate", cfg.Environment)
	logger := observability.GetLogger()

	hcpIDs, err := collectHCPIDs(hcpList, inputFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read HCP ids")
	}
	if len(hcpIDs) == 0 {
		logger.Fatal().Msg("no HCP ids given; use -hcps or -file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observability.Setup(ctx, &cfg.OTEL, cfg.Environment)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
	} else {
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			_ = shutdownTelemetry(flushCtx)
		}()
	}

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.Close()

	start := time.Now()
	logger.Info().Int("hcps", len(hcpIDs)).Int("workers", cfg.Generation.BulkWorkers).Msg("starting bulk generation")

	result, err := app.Recommendations.GenerateBulk(ctx, hcpIDs)
	if err != nil {
		logger.Error().Err(err).Msg("bulk generation failed")
		return
	}

	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("successes", result.Successes).
		Int("failures", result.Failures).
		Msg("bulk generation complete")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error().Err(err).Msg("failed to write result")
	}
}

// collectHCPIDs merges the flag list and the input file, dropping blanks and duplicates.
func collectHCPIDs(list, file string) ([]string, error) {
	var raw []string
	if list != "" {
		raw = append(raw, strings.Split(list, ",")...)
	}

	if file != "" {
		var r io.Reader = os.Stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

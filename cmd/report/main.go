// Package main generates a snapshot report of the learning state as
// Markdown and CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
	"github.com/esdrastrade/Market-Manus-sub002/internal/reporting"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
	chstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/clickhouse"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/migrations"
	pgstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/postgres"
)

func main() {
	// Load .env file if exists; system env vars win.
	_ = godotenv.Load()

	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the trial log (optional)")
	recentTrials := flag.Int("recent-trials", 20, "Recent trials to include in the report")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}

	ctx := context.Background()

	armStore, trialStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	registry := bandit.NewRegistry(armStore, logger)
	exp := experience.New(trialStore, experience.Config{}, logger, nil)

	report, err := reporting.NewGenerator(registry, exp, *recentTrials).Generate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write markdown report")
	}

	csvPath := filepath.Join(*outputDir, "ARM_RANKING.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.ArmRanking)), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write csv report")
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
}

func createStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.ArmStore, storage.TrialStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	armStore := pgstore.NewArmStore(pool)

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		cleanup := func() {
			conn.Close()
			pool.Close()
		}
		return armStore, chstore.NewTrialStore(conn), cleanup, nil
	}

	return armStore, pgstore.NewTrialStore(pool), pool.Close, nil
}

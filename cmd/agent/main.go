// Package main runs a batch learning session: load or generate a candle
// series, run a number of learning cycles, and print the resulting arm
// ranking.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/config"
	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/engine"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
	"github.com/esdrastrade/Market-Manus-sub002/internal/marketdata"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/memory"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/migrations"
	pgstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/postgres"
	"github.com/esdrastrade/Market-Manus-sub002/internal/strategies"
)

func main() {
	// Load .env file if exists; system env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "YAML config file (defaults used when empty)")
	candlesPath := flag.String("candles", "", "Candle CSV file (timestamp_ms,open,high,low,close,volume)")
	synthetic := flag.Int("synthetic", 0, "Generate N synthetic candles instead of loading a file")
	seed := flag.Int64("seed", 42, "Seed for the synthetic series")
	cycles := flag.Int("cycles", 10, "Learning cycles to run")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	exportFormat := flag.String("export", "", "Export the trial log after the run (csv or json)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	if *candlesPath == "" && *synthetic <= 0 {
		logger.Fatal().Msg("either --candles or --synthetic is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	candles, err := loadCandles(*candlesPath, *synthetic, *seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("load candles")
	}
	logger.Info().Int("bars", len(candles)).Msg("candle series ready")

	ctx := context.Background()

	armStore, trialStore, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	app, err := buildEngine(ctx, cfg, armStore, trialStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}

	completed := 0
	for i := 0; i < *cycles; i++ {
		decision := app.engine.ProcessBatch(ctx, candles)
		if decision.Degraded {
			logger.Warn().Str("state", string(decision.DegradedFrom)).Int("cycle", i+1).Msg("cycle degraded")
			continue
		}
		completed++
		logger.Info().
			Int("cycle", i+1).
			Str("strategy", decision.StrategyID).
			Int("signal", decision.Signal).
			Float64("reward", decision.Reward).
			Msg("cycle done")
	}

	printRanking(ctx, app.registry, logger)

	if *exportFormat != "" {
		path, err := app.experience.Export(ctx, strings.ToLower(*exportFormat))
		if err != nil {
			logger.Fatal().Err(err).Msg("export trials")
		}
		fmt.Printf("Trial log exported to %s\n", path)
	}

	fmt.Printf("Completed %d/%d cycles\n", completed, *cycles)
}

// app bundles the wired components.
type app struct {
	engine     *engine.Engine
	registry   *bandit.Registry
	experience *experience.Store
}

func buildEngine(ctx context.Context, cfg config.Config, armStore storage.ArmStore, trialStore storage.TrialStore, logger zerolog.Logger) (*app, error) {
	registry := bandit.NewRegistry(armStore, logger)
	if err := registry.EnsureArms(ctx, strategies.DefaultSeeds()); err != nil {
		return nil, fmt.Errorf("register seed arms: %w", err)
	}

	exp := experience.New(trialStore, experience.Config{
		MaxTrials:     cfg.MaxTrialsRetained,
		BackupEveryN:  cfg.BackupEveryNAppends,
		BackupsToKeep: cfg.BackupsToKeep,
		BackupDir:     filepath.Join(cfg.MemoryDir, "backups"),
		ExportDir:     filepath.Join(cfg.MemoryDir, "exports"),
	}, logger, nil)

	eng := engine.New(engine.Config{
		FeeRateBps:          cfg.FeeRateBps,
		LambdaDrawdown:      cfg.LambdaDrawdown,
		LambdaTurnover:      cfg.LambdaTurnover,
		AnnualizationFactor: cfg.AnnualizationFactor,
		TrainWindowSize:     cfg.TrainWindowSize,
		TestWindowSize:      cfg.TestWindowSize,
		MinBars:             cfg.MinBars,
	}, registry, exp, strategies.NewRegistry(), logger, nil)

	return &app{engine: eng, registry: registry, experience: exp}, nil
}

func loadCandles(path string, synthetic int, seed int64) ([]domain.Candle, error) {
	if path != "" {
		return marketdata.LoadCSV(path)
	}
	return marketdata.Synthetic(synthetic, marketdata.SyntheticConfig{Seed: seed}), nil
}

func createStores(ctx context.Context, postgresDSN string, useMemory bool) (storage.ArmStore, storage.TrialStore, func(), error) {
	if useMemory {
		return memory.NewArmStore(), memory.NewTrialStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewArmStore(pool), pgstore.NewTrialStore(pool), pool.Close, nil
}

func printRanking(ctx context.Context, registry *bandit.Registry, logger zerolog.Logger) {
	arms, err := registry.Stats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("load arm stats")
		return
	}

	fmt.Println("\nArm ranking:")
	for i, a := range arms {
		fmt.Printf("  %2d. %-10s %-40s pulls=%-4d mean=%.4f\n",
			i+1, a.StrategyID, a.Params.Canonical(), a.Pulls, a.MeanReward)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// Package main runs the learning service: a periodic cycle driver over a
// candle feed plus HTTP endpoints for health, status, arms, trials and
// Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/config"
	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/engine"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
	"github.com/esdrastrade/Market-Manus-sub002/internal/marketdata"
	"github.com/esdrastrade/Market-Manus-sub002/internal/observability"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
	chstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/clickhouse"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/memory"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/migrations"
	pgstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/postgres"
	"github.com/esdrastrade/Market-Manus-sub002/internal/strategies"
)

// Server drives periodic learning cycles and serves the HTTP API.
type Server struct {
	engine     *engine.Engine
	registry   *bandit.Registry
	experience *experience.Store
	feed       *feed
	logger     zerolog.Logger

	interval time.Duration
	started  time.Time

	mu           sync.Mutex
	cycleRuns    int
	degradedRuns int
	lastCycle    time.Time
	lastDecision engine.Decision
}

func main() {
	// Load .env file if exists; system env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "YAML config file (defaults used when empty)")
	candlesPath := flag.String("candles", "", "Candle CSV file to learn on (synthetic feed when empty)")
	seed := flag.Int64("seed", 42, "Seed for the synthetic feed")
	window := flag.Int("window", 1500, "Bars per learning batch")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	interval := flag.Duration("cycle-interval", time.Minute, "Learning cycle interval")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the trial log (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	armStore, trialStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	registry := bandit.NewRegistry(armStore, logger)
	if err := registry.EnsureArms(ctx, strategies.DefaultSeeds()); err != nil {
		logger.Fatal().Err(err).Msg("register seed arms")
	}

	exp := experience.New(trialStore, experience.Config{
		MaxTrials:     cfg.MaxTrialsRetained,
		BackupEveryN:  cfg.BackupEveryNAppends,
		BackupsToKeep: cfg.BackupsToKeep,
		BackupDir:     filepath.Join(cfg.MemoryDir, "backups"),
		ExportDir:     filepath.Join(cfg.MemoryDir, "exports"),
	}, logger, metrics)

	eng := engine.New(engine.Config{
		FeeRateBps:          cfg.FeeRateBps,
		LambdaDrawdown:      cfg.LambdaDrawdown,
		LambdaTurnover:      cfg.LambdaTurnover,
		AnnualizationFactor: cfg.AnnualizationFactor,
		TrainWindowSize:     cfg.TrainWindowSize,
		TestWindowSize:      cfg.TestWindowSize,
		MinBars:             cfg.MinBars,
	}, registry, exp, strategies.NewRegistry(), logger, metrics)

	fd, err := newFeed(*candlesPath, *seed, *window)
	if err != nil {
		logger.Fatal().Err(err).Msg("open candle feed")
	}

	server := &Server{
		engine:     eng,
		registry:   registry,
		experience: exp,
		feed:       fd,
		logger:     logger.With().Str("component", "server").Logger(),
		interval:   *interval,
		started:    time.Now(),
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	go server.startHTTPServer(*addr)

	server.Run(ctx)
}

// Run drives one cycle per interval until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("cycle driver started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First cycle immediately.
	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cycle driver stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Server) runCycle(ctx context.Context) {
	decision := s.engine.ProcessBatch(ctx, s.feed.Next())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleRuns++
	if decision.Degraded {
		s.degradedRuns++
	}
	s.lastCycle = time.Now()
	s.lastDecision = decision
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/arms", s.handleArms)
	mux.HandleFunc("/trials", s.handleTrials)

	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error().Err(err).Msg("http server error")
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	CycleRuns    int       `json:"cycle_runs"`
	DegradedRuns int       `json:"degraded_runs"`
	LastCycle    time.Time `json:"last_cycle,omitempty"`
	LastStrategy string    `json:"last_strategy,omitempty"`
	LastSignal   int       `json:"last_signal"`
	LastReward   float64   `json:"last_reward"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		CycleRuns:    s.cycleRuns,
		DegradedRuns: s.degradedRuns,
		LastCycle:    s.lastCycle,
		LastStrategy: s.lastDecision.StrategyID,
		LastSignal:   s.lastDecision.Signal,
		LastReward:   s.lastDecision.Reward,
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

// ArmResponse is one arm in the /arms response.
type ArmResponse struct {
	StrategyID string  `json:"strategy_id"`
	Params     string  `json:"params"`
	Pulls      int     `json:"pulls"`
	MeanReward float64 `json:"mean_reward"`
	LastUpdate int64   `json:"last_update_ms"`
}

func (s *Server) handleArms(w http.ResponseWriter, r *http.Request) {
	arms, err := s.registry.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]ArmResponse, len(arms))
	for i, a := range arms {
		resp[i] = ArmResponse{
			StrategyID: a.StrategyID,
			Params:     a.Params.Canonical(),
			Pulls:      a.Pulls,
			MeanReward: a.MeanReward,
			LastUpdate: a.LastUpdate,
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleTrials(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trials, err := s.experience.Query(r.Context(), experience.Filter{
		StrategyID: r.URL.Query().Get("strategy"),
		Limit:      limit,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, trials)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// feed produces the batch for each cycle. A CSV feed replays a sliding
// window over the file; the synthetic feed extends a seeded random walk
// one bar per cycle.
type feed struct {
	mu      sync.Mutex
	candles []domain.Candle
	window  int
	cursor  int

	synthetic bool
	seed      int64
}

func newFeed(path string, seed int64, window int) (*feed, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if path == "" {
		return &feed{
			candles:   marketdata.Synthetic(window, marketdata.SyntheticConfig{Seed: seed}),
			window:    window,
			synthetic: true,
			seed:      seed,
		}, nil
	}

	candles, err := marketdata.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return &feed{candles: candles, window: window}, nil
}

// Next returns the batch for the next cycle.
func (f *feed) Next() []domain.Candle {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.synthetic {
		// Regenerate with one more bar so the walk stays deterministic
		// for the seed.
		f.cursor++
		f.candles = marketdata.Synthetic(f.window+f.cursor, marketdata.SyntheticConfig{Seed: f.seed})
		out := make([]domain.Candle, f.window)
		copy(out, f.candles[len(f.candles)-f.window:])
		return out
	}

	if len(f.candles) <= f.window {
		out := make([]domain.Candle, len(f.candles))
		copy(out, f.candles)
		return out
	}

	// Slide one bar per cycle, wrapping at the end of the file.
	start := f.cursor % (len(f.candles) - f.window + 1)
	f.cursor++
	out := make([]domain.Candle, f.window)
	copy(out, f.candles[start:start+f.window])
	return out
}

func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.ArmStore, storage.TrialStore, func(), error) {
	if useMemory {
		return memory.NewArmStore(), memory.NewTrialStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	armStore := pgstore.NewArmStore(pool)

	// The trial log can go to ClickHouse for cheap analytics at volume;
	// arms stay in Postgres either way.
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

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

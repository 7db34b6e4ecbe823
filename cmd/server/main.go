package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/appraiser/internal/config"
	"github.com/aristath/appraiser/internal/database"
	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/engine"
	"github.com/aristath/appraiser/internal/forecast"
	"github.com/aristath/appraiser/internal/marketdata"
	"github.com/aristath/appraiser/internal/options"
	"github.com/aristath/appraiser/internal/recommendation"
	"github.com/aristath/appraiser/internal/scheduler"
	"github.com/aristath/appraiser/internal/server"
	"github.com/aristath/appraiser/internal/simulation"
	"github.com/aristath/appraiser/internal/valuation"
	"github.com/aristath/appraiser/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored from the start
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting valuation service")

	// Databases
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	reportsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "reports.db"),
		Profile: database.ProfileStandard,
		Name:    "reports",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open reports database")
	}
	defer reportsDB.Close()

	for _, db := range []*database.DB{cacheDB, reportsDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("db", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Market data: HTTP client behind a snapshot cache
	client := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataAPIKey, log)
	market := marketdata.NewCachedProvider(client, cacheDB, marketdata.DefaultCacheTTL, log)

	// Valuation engine wiring
	defaults := domain.StandardAssumptions()
	ensemble := forecast.NewStandardEnsemble(defaults, log)
	pricer := options.NewPricer(cfg.RiskFreeRate, cfg.MarketRiskPremium, defaults, log)
	valuator := valuation.NewValuator(ensemble, pricer, defaults, log)
	aggregator := valuation.NewAggregator(log)
	sensitivity := simulation.NewSensitivity(valuator, aggregator, log)
	recommender := recommendation.NewEngine(log)
	eng := engine.New(market, valuator, aggregator, sensitivity, recommender,
		defaults, cfg.RiskFreeRate, cfg.MarketRiskPremium, log)

	reportStore := engine.NewReportStore(reportsDB)
	segmentSource := scheduler.StandardSegmentSource{}

	defaultOptions := engine.Options{
		MonteCarloTrials:  cfg.MonteCarloTrials,
		MonteCarloWorkers: cfg.MonteCarloWorkers,
		RandomSeed:        cfg.RandomSeed,
	}

	// Background jobs
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshValuationsJob(eng, segmentSource, reportStore,
		cfg.TrackedSymbols, defaultOptions, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	if err := sched.AddJob("0 0 3 * * *", scheduler.NewMaintenanceJob(cacheDB, reportsDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		Engine:         eng,
		Reports:        reportStore,
		Segments:       segmentSource,
		Jobs:           sched,
		DefaultOptions: defaultOptions,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

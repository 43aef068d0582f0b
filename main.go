package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-scorecard/activity"
	"ai-scorecard/auth"
	"ai-scorecard/cache"
	"ai-scorecard/config"
	"ai-scorecard/handler"
	appLogger "ai-scorecard/logger"
	"ai-scorecard/middleware"
	"ai-scorecard/reports"
	"ai-scorecard/store"
	"ai-scorecard/tracker"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	once := flag.Bool("once", false, "run the scorecard aggregation once, print the report to stdout and exit")
	flag.Parse()

	cfg := config.MustLoadConfig()
	appLogger.Initialize(cfg.LogLevel)
	log.Info().Msg("Configuration loaded successfully")

	epoch, err := cfg.Tracker.EpochTime()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tracker epoch")
	}
	floor, err := cfg.Tracker.FloorTime()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid availability floor")
	}

	// The credential provider is the only component allowed to abort a
	// run; everything downstream degrades per window instead.
	tokens, err := auth.NewServiceAccount(cfg.Google)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load service account credentials")
	}
	preflight := func(ctx context.Context) error {
		_, err := tokens.Token(ctx)
		return err
	}

	// Cache store: Redis when configured, in-memory otherwise.
	var (
		rdb            *redis.Client
		scorecardStore store.Store
		deepDiveStore  store.Store
	)
	if cfg.Redis.Address != "" {
		rdb, err = store.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		opTimeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second
		scorecardStore = store.NewRedis(rdb, "scorecard", opTimeout)
		deepDiveStore = store.NewRedis(rdb, "deepdive", opTimeout)
	} else {
		log.Warn().Msg("No Redis address configured, weekly cache will not survive restarts")
		scorecardStore = store.NewMemory()
		deepDiveStore = store.NewMemory()
	}

	client := reports.NewClient(cfg.Google, cfg.Tracker.MaxPages, tokens)

	base := tracker.Config{
		Epoch:        epoch,
		Floor:        floor,
		WindowLength: time.Duration(cfg.Tracker.WindowDays) * 24 * time.Hour,
		WeeksBack:    cfg.Tracker.WeeksBack,
		EventName:    cfg.Google.EventName,
		MaxResults:   cfg.Tracker.MaxResults,
		TopApps:      cfg.Tracker.TopApps,
		TopActions:   cfg.Tracker.TopActions,
		IncludeRaw:   cfg.Tracker.IncludeRaw,
		Preflight:    preflight,
	}

	scorecardCfg := base
	scorecardCfg.Label = "scorecard"
	scorecardCfg.Filter = activity.NewSingleAppFilter(cfg.Tracker.SingleApp)
	scorecard := tracker.New(scorecardCfg, client, scorecardStore)

	deepDiveCfg := base
	deepDiveCfg.Label = "deepdive"
	deepDiveCfg.Filter = activity.NewAllAppsFilter(cfg.Tracker.WorkspaceApps)
	deepDiveCfg.PerApp = true
	deepDive := tracker.New(deepDiveCfg, client, deepDiveStore)

	if *once {
		runOnce(scorecard)
		return
	}

	serve(cfg, scorecard, deepDive, rdb)
}

// runOnce prints the scorecard report to stdout for pipeline consumption.
// The report is always well-formed; a failed run carries its error inside
// the document.
func runOnce(scorecard handler.Runner) {
	report := scorecard.Run(context.Background())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode report")
	}
	if report.Error != "" {
		os.Exit(1)
	}
}

func serve(cfg config.Config, scorecard, deepDive handler.Runner, rdb *redis.Client) {
	var reportCache *cache.ReportCache
	if cfg.Cache.Enabled {
		var err error
		reportCache, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize report cache")
		}
		defer reportCache.Close()
	} else {
		log.Info().Msg("Report cache disabled in configuration")
	}

	reportHandler := handler.NewReportHandler(scorecard, deepDive, reportCache, rdb)

	r := mux.NewRouter()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	r.HandleFunc("/health", reportHandler.HealthCheck).Methods("GET")
	r.HandleFunc("/cache/metrics", reportHandler.CacheMetrics).Methods("GET")
	r.HandleFunc("/api/scorecard", reportHandler.GetScorecard).Methods("GET")
	r.HandleFunc("/api/deepdive", reportHandler.GetDeepDive).Methods("GET")

	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddress).Msg("Starting scorecard server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

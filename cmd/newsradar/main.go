package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsradar/newsradar/internal/analysis"
	"github.com/newsradar/newsradar/internal/article"
	"github.com/newsradar/newsradar/internal/cache"
	"github.com/newsradar/newsradar/internal/config"
	"github.com/newsradar/newsradar/internal/db"
	"github.com/newsradar/newsradar/internal/event"
	"github.com/newsradar/newsradar/internal/httpapi"
	"github.com/newsradar/newsradar/internal/ingest"
	"github.com/newsradar/newsradar/internal/monitor"
	"github.com/newsradar/newsradar/internal/search"
	"github.com/newsradar/newsradar/internal/user"

	"github.com/joho/godotenv"
)

func main() {
	// Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "[newsradar] ", log.LstdFlags|log.Lshortfile)

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Printf("config loaded: %d feeds", len(cfg.Feeds))

	// Mongo
	mongoClient, err := db.ConnectMongo(ctx, cfg.MongoURI, 10*time.Second)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}
	dbInstance := mongoClient.Database(cfg.MongoDBName)

	articleRepo, err := article.NewMongoArticleRepository(dbInstance, logger)
	if err != nil {
		logger.Fatalf("failed to init article repository: %v", err)
	}
	runLog, err := ingest.NewMongoRunLog(dbInstance)
	if err != nil {
		logger.Fatalf("failed to init run log: %v", err)
	}
	alertStore, err := monitor.NewMongoStore(dbInstance)
	if err != nil {
		logger.Fatalf("failed to init alert store: %v", err)
	}
	userStore := user.NewMongoStore(dbInstance)
	logger.Println("repositories initialised")

	// Search cache
	var searchCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Printf("redis unavailable, using in-process search cache: %v", err)
		} else {
			defer rc.Close()
			searchCache = rc
		}
	}

	// Ingestion
	httpClient := &http.Client{Timeout: cfg.FeedTimeout}
	feedClient := ingest.NewRSSClient(httpClient, cfg.ExtractFullText, cfg.DefaultLanguage, logger)
	ingestService := ingest.NewService(
		articleRepo,
		ingest.NewFetcher(feedClient, cfg.FetchWorkers, cfg.FeedTimeout, logger),
		analysis.NewLexicon(),
		runLog,
		ingest.Options{
			Sources:           cfg.Feeds,
			DefaultLimit:      cfg.DefaultLimitPerFeed,
			RunTimeout:        cfg.RunTimeout,
			AnalysisWorkers:   cfg.AnalysisWorkers,
			IndexRetries:      cfg.IndexRetries,
			IndexRetryBackoff: cfg.IndexRetryBackoff,
			MaxPolls:          cfg.MaxPolls,
			PollLimit:         cfg.PollLimitPerFeed,
		},
		logger,
	)

	searchService := search.NewService(articleRepo, searchCache, cfg.SearchMaxSize, cfg.SearchCacheTTL, logger)
	userService := user.NewService(userStore, logger)

	watchMonitor := monitor.New(articleRepo, userStore, alertStore, monitor.Options{
		Interval:          cfg.MonitorInterval,
		Window:            cfg.MonitorWindow,
		NegativeThreshold: cfg.MonitorNegativeThreshold,
		BaselineDelta:     cfg.MonitorBaselineDelta,
		BaselineAlpha:     cfg.MonitorBaselineAlpha,
		MinVolume:         cfg.MonitorMinVolume,
		MaxArticles:       cfg.MonitorMaxArticles,
	}, logger)

	// Start background workers
	if cfg.PollLimitPerFeed > 0 {
		go ingestService.StartPolling(ctx, cfg.PollInterval)
	}
	go func() {
		if err := watchMonitor.Start(ctx); err != nil {
			logger.Printf("monitor: %v", err)
		}
	}()

	if cfg.RabbitURI != "" {
		publisher, err := event.NewRabbitPublisher(event.RabbitConfig{
			URI:        cfg.RabbitURI,
			Exchange:   cfg.RabbitExchange,
			RoutingKey: cfg.RabbitRoutingKey,
		}, logger)
		if err != nil {
			logger.Fatalf("failed to init rabbit publisher: %v", err)
		}
		defer publisher.Close()

		relay := event.NewService(dbInstance.Collection(monitor.AlertCollectionName), publisher, logger)
		go relay.Run(ctx)
	}

	// HTTP
	srv := httpapi.New(ingestService, searchService, userService, alertStore, logger).NewHTTPServer(cfg.HTTPAddr)
	go func() {
		logger.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	logger.Println("service started")

	// Block until we receive a signal / ctx cancelled
	<-ctx.Done()
	logger.Println("shutdown signal received, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("HTTP server shutdown error: %v", err)
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Printf("mongo disconnect error: %v", err)
	}

	logger.Println("shutdown complete")
}

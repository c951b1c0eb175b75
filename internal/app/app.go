package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-insights/internal/config"
	"github.com/riskibarqy/sports-insights/internal/decoder"
	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/filestore"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/gemini"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/sports-insights/internal/interfaces/httpapi"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"github.com/riskibarqy/sports-insights/internal/platform/metrics"
	"github.com/riskibarqy/sports-insights/internal/platform/resilience"
	"github.com/riskibarqy/sports-insights/internal/usecase"
)

// App holds the HTTP server and the resources it owns.
type App struct {
	Server *http.Server

	registry *filestore.Registry
	db       *sqlx.DB
	logger   *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	catalog := sport.DefaultCatalog()
	metricsManager := metrics.NewManager(metrics.WithRuntimeCollectors())

	repo, db, err := newGenerationRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	geminiClient := gemini.NewClient(gemini.ClientConfig{
		BaseURL: cfg.Gemini.BaseURL,
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Generation: gemini.GenerationConfig{
			Temperature:      cfg.Gemini.Temperature,
			TopP:             cfg.Gemini.TopP,
			TopK:             cfg.Gemini.TopK,
			MaxOutputTokens:  cfg.Gemini.MaxOutputTokens,
			ResponseMimeType: "application/json",
		},
		Timeout:      cfg.Gemini.Timeout,
		PollInterval: cfg.Gemini.PollInterval,
		Retry: resilience.RetryConfig{
			MaxRetries: cfg.Gemini.MaxRetries,
			Backoff:    cfg.Gemini.RetryBackoff,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.Gemini.CircuitEnabled,
			FailureThreshold: cfg.Gemini.CircuitFailureCount,
			OpenTimeout:      cfg.Gemini.CircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.Gemini.CircuitHalfOpenMaxReq,
		},
		Logger: logger,
	})
	geminiClient.Breaker().OnStateChange(func(from, to resilience.CircuitState) {
		metricsManager.RecordBreakerTransition("gemini", string(to))
		logger.Warn("gemini circuit breaker state changed", "from", string(from), "to", string(to))
	})

	registry, err := filestore.NewRegistry(geminiClient, filestore.Config{
		DataDir:       cfg.DataDir,
		Workers:       cfg.UploadWorkers,
		TTL:           cfg.Gemini.FileTTL,
		UploadTimeout: cfg.Gemini.UploadTimeout,
		Logger:        logger,
		Recorder:      metricsManager,
	})
	if err != nil {
		closeDB(db, logger)
		return nil, err
	}
	if cfg.Gemini.Warmup {
		if err := registry.Warm(ctx, catalog.List()); err != nil {
			logger.Warn("data file warmup incomplete", "error", err)
		}
	}

	insightSvc := usecase.NewInsightService(usecase.InsightServiceConfig{
		Catalog:  catalog,
		Files:    registry,
		Model:    geminiClient,
		Decoder:  decoder.New(decoder.WithObserver(decodeObserver{metrics: metricsManager}), decoder.WithLogger(logger)),
		Repo:     repo,
		Recorder: metricsManager,
		Logger:   logger,
	})
	generationSvc := usecase.NewGenerationService(repo, catalog)

	handler := httpapi.NewHandler(httpapi.HandlerConfig{
		Catalog:     catalog,
		Insights:    insightSvc,
		Generations: generationSvc,
		DataFiles:   registry,
		Streams:     metricsManager,
		Heartbeat:   cfg.StreamHeartbeat,
		Logger:      logger,
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            metricsManager.Handler(),
		Recorder:           metricsManager,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:   server,
		registry: registry,
		db:       db,
		logger:   logger,
	}, nil
}

// Shutdown drains in-flight requests and then releases the upload pool and
// the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.registry.Close()
	closeDB(a.db, a.logger)
	return err
}

func newGenerationRepository(cfg config.Config, logger *logging.Logger) (generation.Repository, *sqlx.DB, error) {
	if cfg.DBURL == "" {
		logger.Info("generation store", "backend", "memory")
		return memory.NewGenerationRepository(), nil, nil
	}

	db, err := openTracedDB(normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger.Info("generation store", "backend", "postgres", "database", dbNameFromURL(cfg.DBURL))
	return postgres.NewGenerationRepository(db), db, nil
}

func closeDB(db *sqlx.DB, logger *logging.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("close database failed", "error", err)
	}
}

// decodeObserver feeds decoder outcomes into the metrics manager.
type decodeObserver struct {
	metrics *metrics.Manager
}

func (o decodeObserver) ObserveRepair(stage decoder.Stage, ok bool) {
	o.metrics.RecordRepair(stage.String(), ok)
}

func (o decodeObserver) ObserveDecode(state decoder.State, usedFinal bool) {
	o.metrics.RecordDecode(string(state), usedFinal)
}

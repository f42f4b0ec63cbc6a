package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/rawdata"
	"github.com/riskibarqy/kqsx/internal/infrastructure/export"
	"github.com/riskibarqy/kqsx/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/kqsx/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/kqsx/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/kqsx/internal/platform/cache"
	"github.com/riskibarqy/kqsx/internal/platform/id"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

const scheduledJobTimeout = 15 * time.Minute

// API owns the HTTP server, the scheduler and the resources they share.
type API struct {
	Server    *http.Server
	cfg       config.Config
	logger    *logging.Logger
	db        *sqlx.DB
	closeDeps func() error
	scheduler *Scheduler
	watchdog  *usecase.WatchdogService
}

func NewAPI(ctx context.Context, cfg config.Config, logger *logging.Logger) (*API, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	db, err := OpenDB(ctx, cfg, apiPool, logger)
	if err != nil {
		return nil, err
	}
	backend, closeCache, err := newCacheBackend(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ids := id.NewUUIDGenerator()
	var repo lottery.Repository = postgres.NewLotteryRepository(db, ids)
	if backend != nil {
		repo = cache.NewLotteryRepository(repo, basecache.NewLoader(backend, logger.Named("cache")))
	}
	frequencyRepo := postgres.NewFrequencyRepository(db)

	ingestion := usecase.NewIngestionService(
		newSource(cfg, logger),
		usecase.NewNormalizer(cfg.SourceCanonicalBaseURL, nil),
		repo,
		postgres.NewRawDataRepository(db),
		logger.Named("ingestion"),
	)
	var ingester usecase.PairIngester
	if cfg.SummaryOnDemandEnabled {
		ingester = ingestion
	}

	summarySvc := usecase.NewSummaryService(repo, ingester, ids, usecase.SummaryConfig{
		LookbackDays:      cfg.SummaryLookbackDays,
		OnDemandIngestion: cfg.SummaryOnDemandEnabled,
	}, cfg.Location, logger.Named("summary"))
	frequencySvc := usecase.NewFrequencyService(frequencyRepo, usecase.FrequencyConfig{
		WindowDays: cfg.FrequencyWindowDays,
		Workers:    cfg.FrequencyWorkers,
	}, cfg.Location, logger.Named("frequency"))
	watchdog := usecase.NewWatchdogService(repo, ingestion, ids, cfg.Location, logger.Named("watchdog"))

	handler := httpapi.NewHandler(
		summarySvc,
		usecase.NewTicketService(repo),
		frequencySvc,
		usecase.NewRandomService(),
		cfg.Location,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	scheduler := NewScheduler(cfg.Location, scheduledJobTimeout, logger)
	if cfg.WatchdogEnabled {
		if err := scheduler.Add("watchdog", cfg.WatchdogSchedule, func(ctx context.Context) { watchdog.CheckToday(ctx) }); err != nil {
			_ = closeCache()
			_ = db.Close()
			return nil, err
		}
	}
	if cfg.FrequencyEnabled {
		err := scheduler.Add("frequency-rebuild", cfg.FrequencySchedule, func(ctx context.Context) {
			if _, err := frequencySvc.Rebuild(ctx); err != nil {
				logger.ErrorContext(ctx, "frequency rebuild failed", "error", err)
			}
		})
		if err != nil {
			_ = closeCache()
			_ = db.Close()
			return nil, err
		}
	}

	return &API{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:       cfg,
		logger:    logger,
		db:        db,
		closeDeps: closeCache,
		scheduler: scheduler,
		watchdog:  watchdog,
	}, nil
}

// Start launches the scheduler and one watchdog pass, then serves HTTP until
// the server is shut down.
func (a *API) Start(ctx context.Context) error {
	a.scheduler.Start()
	if a.cfg.WatchdogEnabled {
		go func() {
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scheduledJobTimeout)
			defer cancel()
			a.watchdog.CheckToday(runCtx)
		}()
	}

	a.logger.Info("http server starting", "addr", a.Server.Addr)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	a.scheduler.Stop(ctx)
	if err := a.closeDeps(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}

// NewRangeRunner wires the range runner for the CLI. The database is opened
// only when persist is true; the returned closer releases it.
func NewRangeRunner(ctx context.Context, cfg config.Config, persist bool, logger *logging.Logger) (*usecase.RangeRunner, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		writer  lottery.Writer
		rawRepo rawdata.Repository
		closer  = func() error { return nil }
	)
	ids := id.NewUUIDGenerator()
	if persist {
		db, err := OpenDB(ctx, cfg, rangeRunnerPool, logger)
		if err != nil {
			return nil, closer, err
		}
		w, closeCache, err := rangeRunnerWriter(ctx, cfg, postgres.NewLotteryRepository(db, ids), logger)
		if err != nil {
			_ = db.Close()
			return nil, closer, err
		}
		writer = w
		rawRepo = postgres.NewRawDataRepository(db)
		closer = func() error { return errors.Join(closeCache(), db.Close()) }
	}

	ingestion := usecase.NewIngestionService(
		newSource(cfg, logger),
		usecase.NewNormalizer(cfg.SourceCanonicalBaseURL, nil),
		writer,
		rawRepo,
		logger.Named("ingestion"),
	)
	runner := usecase.NewRangeRunner(ingestion, export.NewSQLExporter(), ids, cfg.Location, logger.Named("range-runner"))
	return runner, closer, nil
}

// rangeRunnerWriter wraps repo so its writes evict the API's cached reads.
// Only a redis cache is shared with the API process.
func rangeRunnerWriter(ctx context.Context, cfg config.Config, repo lottery.Repository, logger *logging.Logger) (lottery.Writer, func() error, error) {
	if !cfg.CacheEnabled || cfg.CacheBackend != config.CacheBackendRedis {
		return repo, func() error { return nil }, nil
	}
	backend, closeCache, err := newCacheBackend(ctx, cfg, logger)
	if err != nil {
		return nil, closeCache, fmt.Errorf("init cache: %w", err)
	}
	return cache.NewLotteryRepository(repo, basecache.NewLoader(backend, logger.Named("cache"))), closeCache, nil
}

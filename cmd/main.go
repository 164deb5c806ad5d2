package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cityconnect/internal/adapters/http/api"
	"github.com/okian/cityconnect/internal/adapters/http/site"
	"github.com/okian/cityconnect/internal/adapters/http/swagger"
	"github.com/okian/cityconnect/internal/adapters/mq/kafka"
	"github.com/okian/cityconnect/internal/adapters/repository"
	app "github.com/okian/cityconnect/internal/app"
	"github.com/okian/cityconnect/internal/config"
	"github.com/okian/cityconnect/pkg/logger"
	"github.com/okian/cityconnect/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		// The logger may not be up yet.
		os.Stderr.WriteString("dispatch: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registerRuntimeCollectors()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if cfg.KafkaEnabled {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, svc,
			kafka.WithLogger(log.Named("kafka")))
		defer func() { _ = consumer.Close() }()
		g.Go(func() error {
			log.Info(gctx, "consuming status events",
				logger.String("topic", cfg.KafkaTopic),
				logger.String("group", cfg.KafkaGroupID),
			)
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})

	runErr := g.Wait()

	// Drain queued status events after producers have stopped.
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		log.Error(stopCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(stopCtx, "server stopped")
	return runErr
}

// newStore opens the configured roster backend.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.RosterBackend {
	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect roster redis: %w", err)
		}
		return repository.NewRedisStore(client, repository.WithKey(cfg.RedisKey)), nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// newService builds the dispatch service from configuration.
func newService(cfg *config.Config, store repository.Store, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("dispatch")),
		app.WithStore(store),
		app.WithStoreBackend(cfg.RosterBackend),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxSuggestionLimit(cfg.MaxSuggestionLimit),
		app.WithNearbyRadiusKm(cfg.NearbyRadiusKm),
		app.WithPolicy(cfg.Scoring.Policy()),
		app.WithCategories(cfg.Categories),
	)
}

// newMux registers the business API, its documentation and the console.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return mux
}

// registerRuntimeCollectors exposes Go runtime and process metrics on the
// service registry. Safe to call more than once.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateServiceMetrics pushes the current stats into the gauges.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateRosterSize(stats.RosterSize)
}

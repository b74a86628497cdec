package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/activitystats/internal/api"
	"example.com/activitystats/internal/auth"
	"example.com/activitystats/internal/cache"
	"example.com/activitystats/internal/config"
	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/observability"
	"example.com/activitystats/internal/persistence/memory"
	"example.com/activitystats/internal/persistence/migrations"
	"example.com/activitystats/internal/persistence/postgres"
	httptransport "example.com/activitystats/internal/transport/http"
)

type store interface {
	domain.ActivityReader
	domain.StatsStore
	Close()
}

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(observability.LoggerConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api stopped with error", zap.Error(err))
	}
	logger.Info("api shut down")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var pageCache domain.PageCache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisFromURL(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer func() { _ = redisCache.Close() }()
		pageCache = redisCache
	}

	clock := quartz.NewReal()
	engine := domain.NewEngine(st, st, domain.NewWindower(clock, cfg.Location()),
		domain.WithRetryPolicy(domain.RetryPolicy{
			MaxRetries: cfg.UpsertMaxRetries,
			BaseDelay:  cfg.UpsertBaseDelay,
			MaxDelay:   cfg.UpsertMaxDelay,
		}),
		domain.WithEngineLogger(logger.Named("engine")),
	)
	service := domain.NewService(engine, domain.NewRanker(st, logger.Named("ranker")), st, st, pageCache, logger)

	handler := api.NewHandler(service,
		api.WithClock(clock),
		api.WithLogger(logger.Named("api")),
		api.WithPageLimits(cfg.DefaultPageLimit, cfg.MaxPageLimit),
	)
	router := api.NewRouter(handler, api.RouterConfig{
		Auth:           auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.SkipHealth),
		Logger:         logger.Named("http"),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	apiCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	apiSrv := httptransport.NewServer(apiCfg, router)
	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	metricsSrv := httptransport.NewServer(metricsCfg, promhttp.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("address", cfg.HTTPAddress), zap.String("store", cfg.StoreDriver))
		return httptransport.Serve(gctx, apiSrv, apiCfg.ShutdownTimeout)
	})
	g.Go(func() error {
		logger.Info("metrics listening", zap.String("address", cfg.MetricsAddress))
		return httptransport.Serve(gctx, metricsSrv, metricsCfg.ShutdownTimeout)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	case "postgres":
		if cfg.RunMigrations {
			if err := migrations.Up(cfg.PostgresURL); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, cfg.PostgresURL, 30*time.Second, logger)
		if err != nil {
			return nil, err
		}
		return postgres.NewRepository(pool, postgres.WithBatchSize(cfg.ScanBatchSize)), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

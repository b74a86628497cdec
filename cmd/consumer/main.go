package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/activitystats/internal/cache"
	"example.com/activitystats/internal/config"
	"example.com/activitystats/internal/consumer"
	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/observability"
	"example.com/activitystats/internal/persistence/postgres"
	httptransport "example.com/activitystats/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(observability.LoggerConfig{
		ServiceName: cfg.ServiceName + "-consumer",
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

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped with error", zap.Error(err))
	}
	logger.Info("consumer shut down")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := postgres.Connect(ctx, cfg.PostgresURL, 30*time.Second, logger)
	if err != nil {
		return err
	}
	repo := postgres.NewRepository(pool, postgres.WithBatchSize(cfg.ScanBatchSize))
	defer repo.Close()

	var pageCache domain.PageCache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisFromURL(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer func() { _ = redisCache.Close() }()
		pageCache = redisCache
	}

	engine := domain.NewEngine(repo, repo, domain.NewWindower(quartz.NewReal(), cfg.Location()),
		domain.WithRetryPolicy(domain.RetryPolicy{
			MaxRetries: cfg.UpsertMaxRetries,
			BaseDelay:  cfg.UpsertBaseDelay,
			MaxDelay:   cfg.UpsertMaxDelay,
		}),
		domain.WithEngineLogger(logger.Named("engine")),
	)
	service := domain.NewService(engine, domain.NewRanker(repo, logger), repo, repo, pageCache, logger)
	handler := consumer.NewRefreshHandler(service, logger.Named("refresh"))

	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	metricsSrv := httptransport.NewServer(metricsCfg, promhttp.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consumer metrics listening", zap.String("address", cfg.MetricsAddress))
		return httptransport.Serve(gctx, metricsSrv, metricsCfg.ShutdownTimeout)
	})

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		topicLogger := logger.With(zap.String("topic", topic), zap.String("group", cfg.ConsumerGroupID))
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(topicLogger))

		g.Go(func() error {
			defer func() { _ = reader.Close() }()
			topicLogger.Info("consumer started")
			if err := proc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume %s: %w", topic, err)
			}
			return nil
		})
	}

	return g.Wait()
}

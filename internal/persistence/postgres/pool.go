package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect opens a pool and waits for the database to answer, backing off between
// attempts for up to maxWait.
func Connect(ctx context.Context, url string, maxWait time.Duration, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxElapsedTime = maxWait

	err = backoff.RetryNotify(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(eb, ctx), func(err error, next time.Duration) {
		logger.Warn("postgres not ready", zap.Error(err), zap.Duration("retry_in", next))
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", classify(err))
	}
	return pool, nil
}

package main

import (
	"context"
	"time"

	"github.com/bookwell/authcore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	connectAttempts = 5
	connectBackoff  = 200 * time.Millisecond
)

func connectPolicy() retry.Backoff {
	return retry.WithMaxRetries(connectAttempts, retry.NewExponential(connectBackoff))
}

func connectRedis(ctx context.Context, cfg processConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	err := retry.Do(ctx, connectPolicy(), func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not ready", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.RedisAddr).Wrap(err)
	}
	return client, nil
}

func connectPostgres(ctx context.Context, cfg processConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	err = retry.Do(ctx, connectPolicy(), func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres not ready", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// buildEngine connects whatever backend cfg.Revocation selects and builds the engine.
// The returned cleanup closes the engine and its connections.
func buildEngine(ctx context.Context, cfg authcore.Config, proc processConfig, logger *zap.Logger) (*authcore.Engine, func(), error) {
	b := authcore.New().
		WithConfig(cfg).
		WithLogger(logger)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Revocation.Enabled {
		switch cfg.Revocation.Backend {
		case authcore.RevocationRedis:
			client, err := connectRedis(ctx, proc, logger)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, func() { _ = client.Close() })
			b = b.WithRedis(client)
		case authcore.RevocationPostgres:
			pool, err := connectPostgres(ctx, proc, logger)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, pool.Close)
			b = b.WithPostgres(pool)
		}
	}

	if cfg.Audit.Enabled {
		b = b.WithAuditSink(authcore.NewZapSink(logger))
	}

	engine, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	closers = append(closers, engine.Close)

	for _, w := range cfg.Lint() {
		logger.Warn("config lint",
			zap.String("code", w.Code),
			zap.String("severity", w.Severity.String()),
			zap.String("message", w.Message),
		)
	}

	return engine, cleanup, nil
}

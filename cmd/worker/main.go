package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"alumni/internal/config"
	"alumni/internal/errtrack"
	"alumni/internal/notify"
	"alumni/internal/queue"
	"alumni/internal/store"
)

// Worker consumes queued notifications from Redis and sends them through the
// configured email provider.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	flush, err := errtrack.Init(cfg.SentryDSN, cfg.Env)
	if err != nil {
		logger.Warn().Err(err).Msg("sentry init failed, error tracking disabled")
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := notify.NewSender(cfg.Email)
	if err != nil {
		logger.Error().Err(err).Msg("email sender init failed")
		os.Exit(1)
	}
	if sender == nil {
		logger.Error().Str("provider", cfg.Email.Provider).Msg("email provider has no credentials")
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, consumer will keep retrying")
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, logger)
	dispatcher := notify.NewDispatcher(q, sender, logger)

	logger.Info().Str("provider", cfg.Email.Provider).Msg("worker started, waiting for messages")
	if err := dispatcher.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker failed")
		flush()
		os.Exit(1)
	}
	logger.Info().Msg("worker stopped")
}

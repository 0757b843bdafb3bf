package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"alumni/internal/admin"
	"alumni/internal/api"
	"alumni/internal/auth"
	"alumni/internal/cloudinary"
	"alumni/internal/config"
	"alumni/internal/directory"
	"alumni/internal/errtrack"
	"alumni/internal/event"
	"alumni/internal/jobs"
	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/notify"
	"alumni/internal/payment"
	"alumni/internal/photo"
	"alumni/internal/queue"
	"alumni/internal/store"
	"alumni/internal/testimonial"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	flush, err := errtrack.Init(cfg.SentryDSN, cfg.Env)
	if err != nil {
		logger.Warn().Err(err).Msg("sentry init failed, error tracking disabled")
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("api server failed")
		flush()
		os.Exit(1)
	}
}

func run(cfg config.App, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	signer, err := auth.NewSigner(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.AdminID, cfg.JWT.AccessTTL)
	if err != nil {
		return err
	}

	var redisClient *store.Redis
	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, logger)
	} else {
		q = queue.NewInMemory(256)
	}

	sender, err := notify.NewSender(cfg.Email)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(q, sender, logger)
	var notifier notify.Enqueuer = dispatcher
	if sender == nil && cfg.QueueBackend != "redis" {
		logger.Warn().Str("provider", cfg.Email.Provider).Msg("email not configured, notifications are dropped")
		notifier = notify.Discard{}
	}

	clock := membership.NewClock(cfg.Location())
	memberOpts := member.Options{
		SiteDomain:     cfg.SiteDomain,
		LifetimeAmount: cfg.Membership.LifetimeAmount,
		AnnualAmount:   cfg.Membership.AnnualAmount,
		Clock:          clock,
		Notifier:       notifier,
		Logger:         logger,
	}
	var folders event.Folders
	if cfg.Cloudinary.CloudName != "" && cfg.Cloudinary.APIKey != "" && cfg.Cloudinary.APISecret != "" {
		cdn := cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		memberOpts.Photos = photo.NewStore(cdn, cfg.Cloudinary.RootFolder)
		folders = cdn
		logger.Info().Str("cloud", cfg.Cloudinary.CloudName).Msg("cloudinary configured")
	} else {
		logger.Warn().Msg("cloudinary not configured, photos and event folders are disabled")
	}

	deps := api.Deps{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Members:      member.NewService(db.Client, memberOpts),
		Testimonials: testimonial.NewService(db.Client, notifier, cfg.Email.ModerationAddress, cfg.SiteDomain, logger),
		Events:       event.NewService(db.Client, folders, cfg.Cloudinary.RootFolder, clock, logger),
		Directory:    directory.NewRepository(db.Client),
		Admins:       admin.NewService(db.Client, logger),
		Jobs:         jobs.NewService(db.Client, clock),
		Orders:       payment.NewGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret),
		Signer:       signer,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// With the in-memory queue the API process delivers its own emails;
	// with redis the worker binary does.
	if cfg.QueueBackend != "redis" && sender != nil {
		g.Go(func() error { return dispatcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info().Msg("server exited")
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/broker"
	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/Freeeeeet/interview_scheduler/internal/controller/httpapi"
	"github.com/Freeeeeet/interview_scheduler/internal/controller/telegram"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/Freeeeeet/interview_scheduler/internal/storage"
	"github.com/Freeeeeet/interview_scheduler/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Start the HTTP API, the event relay, the telegram notifier and the payment expiry sweeper",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting interview scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.String("events", cfg.Events.Driver),
		zap.Bool("env_file", cfg.EnvFileLoaded),
	)

	repos, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	profileCache, closeCache := openCache(ctx, cfg)
	defer closeCache()

	store, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	m := metrics.New()
	services := app.NewServices(repos, profileCache, m.CountEvents(bus), service.RealTimeProvider{}, cfg.Payments.DefaultCurrency, logger)

	relay, err := openRelay(cfg, bus)
	if err != nil {
		return err
	}
	if relay != nil {
		relay.Start(ctx)
		defer func() {
			if err := relay.Stop(); err != nil {
				logger.Error("Failed to close event broker", zap.Error(err))
			}
		}()
	}

	if cfg.TelegramToken != "" {
		stopBot, err := startTelegram(ctx, cfg, bus, services)
		if err != nil {
			return err
		}
		defer stopBot()
	} else {
		logger.Info("TELEGRAM_TOKEN not set, notifications disabled")
	}

	if cfg.ExpiryEnabled() {
		scheduler := app.NewScheduler(services.Payments, cfg.Payments.PendingTTL, cfg.Payments.SweepInterval, logger.Named("expiry"))
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Slots:         services.Slots,
		Bookings:      services.Bookings,
		Payments:      services.Payments,
		Interviews:    services.Interviews,
		Feedback:      services.Feedback,
		Profiles:      services.Profiles,
		Pricing:       services.Pricing,
		Auth:          auth.NewManager(cfg.JWTSecret),
		Store:         store,
		Metrics:       m,
		Logger:        logger.Named("http"),
		ProofMaxBytes: cfg.Payments.ProofMaxBytes,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Interview scheduler stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*app.Repositories, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return app.NewMemoryRepositories(memory.NewStore()), func() {}, nil
	}

	pool, err := openPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.MigrationsAuto {
		migrator, err := app.NewMigrator(pool, migrations.FS, logger.Named("migrations"))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		err = migrator.Up(ctx)
		_ = migrator.Close()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	return app.NewPostgresRepositories(pool), pool.Close, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")
	return pool, nil
}

// openCache redis необязателен: без него профили читаются из базы
func openCache(ctx context.Context, cfg *config.Config) (service.ProfileCache, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}

	client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cache.Ping(ctx, client); err != nil {
		logger.Warn("Redis unavailable, profile cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return nil, func() {}
	}

	logger.Info("Profile cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	return cache.NewProfileCache(client, cfg.Redis.TTL), func() { _ = client.Close() }
}

func openObjectStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.S3.Bucket == "" {
		logger.Warn("S3_BUCKET not set, uploads are kept in memory")
		return storage.NewMemoryStore(cfg.PublicURL + "/api/files"), nil
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}, logger.Named("s3"))
	if err != nil {
		return nil, fmt.Errorf("init s3 store: %w", err)
	}
	return store, nil
}

func openRelay(cfg *config.Config, bus *events.Bus) (*broker.Relay, error) {
	var (
		publisher broker.Publisher
		err       error
	)

	switch cfg.Events.Driver {
	case config.EventsDriverNATS:
		publisher, err = broker.NewNATSPublisher(broker.DefaultNATSConfig(cfg.Events.NATSURL, cfg.Events.SubjectPrefix), logger.Named("nats"))
	case config.EventsDriverRabbitMQ:
		publisher, err = broker.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.RabbitMQExchange)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connect event broker: %w", err)
	}

	logger.Info("Relaying domain events", zap.String("driver", cfg.Events.Driver))
	return broker.NewRelay(bus, publisher, logger.Named("relay")), nil
}

func startTelegram(ctx context.Context, cfg *config.Config, bus *events.Bus, services *app.Services) (func(), error) {
	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	sender := telegram.NewBotSender(b)
	telegram.NewCommands(services.Profiles, services.Slots, sender, logger.Named("telegram")).Register(b)

	notifier := telegram.NewNotifier(bus, services.Profiles, sender, logger.Named("notifier"))
	notifier.Start(ctx)

	botCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Start(botCtx)
	}()

	logger.Info("Telegram bot started")

	return func() {
		notifier.Stop()
		cancel()
		<-done
	}, nil
}


// Package app wires together all dependencies and runs the service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jfchinemerem/Threesixteen/internal/auth"
	"github.com/jfchinemerem/Threesixteen/internal/cache"
	"github.com/jfchinemerem/Threesixteen/internal/checkout"
	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider"
	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider/mock"
	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider/paystack"
	"github.com/jfchinemerem/Threesixteen/internal/config"
	"github.com/jfchinemerem/Threesixteen/internal/event"
	handler "github.com/jfchinemerem/Threesixteen/internal/handler/http"
	"github.com/jfchinemerem/Threesixteen/internal/repository/postgres"
	"github.com/jfchinemerem/Threesixteen/internal/service"
	"github.com/jfchinemerem/Threesixteen/internal/store"
	"github.com/jfchinemerem/Threesixteen/internal/view"
	"github.com/jfchinemerem/Threesixteen/migrations"
	"github.com/jfchinemerem/Threesixteen/pkg/database"
	"github.com/jfchinemerem/Threesixteen/pkg/health"
	"github.com/jfchinemerem/Threesixteen/pkg/httpclient"
	pkgkafka "github.com/jfchinemerem/Threesixteen/pkg/kafka"
	"github.com/jfchinemerem/Threesixteen/pkg/middleware"
	"github.com/jfchinemerem/Threesixteen/pkg/tracing"
)

// App holds the long-lived components and runs the HTTP server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// New creates the application, initializing every dependency.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampling,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))

	// Events flow to Kafka when enabled, otherwise they are dropped.
	var events event.Publisher = event.NoopPublisher{}
	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		events = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(pool)
	wishlistRepo := postgres.NewWishlistRepository(pool)
	wishlistCache := cache.NewWishlistCache(redisClient, cfg.CacheTTL)

	wishlistStore := store.New(wishlistRepo, wishlistCache, events, logger)
	views := view.NewRegistry(wishlistStore, logger)
	userService := service.NewUserService(userRepo, refreshTokenRepo, jwtManager, events, logger)

	paymentProvider, err := newPaymentProvider(cfg, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	logger.Info("payment provider configured", slog.String("provider", paymentProvider.Name()))
	orchestrator := checkout.New(paymentProvider, events, cfg.PaystackPublicKey, cfg.CheckoutCurrency, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := handler.NewRouter(handler.RouterConfig{
		UserService:  userService,
		Views:        views,
		Store:        wishlistStore,
		Checkout:     orchestrator,
		JWTManager:   jwtManager,
		Health:       healthHandler,
		Logger:       logger,
		ServiceName:  cfg.ServiceName,
		PublicOrigin: cfg.PublicOrigin,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		TracingOn:   cfg.TracingEnabled,
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		EnablePprof: cfg.Environment == "development",
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func newPaymentProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.PaymentProvider {
	case "paystack":
		client := httpclient.New(httpclient.DefaultConfig())
		cbClient := httpclient.NewCircuitBreakerClient(
			client,
			httpclient.DefaultCircuitBreakerConfig("paystack"),
			logger,
		)
		return paystack.NewProvider(cbClient, cfg.PaystackBaseURL, cfg.PaystackSecretKey, logger), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the components in order: HTTP server first so in-flight
// requests drain, then the tracer so their spans flush, then the producer
// and the data stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d error(s): %w", len(errs), errors.Join(errs...))
	}

	a.logger.Info("application stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cryptosniper/configs"
	"cryptosniper/internal/adapter"
	"cryptosniper/internal/database"
	delivery "cryptosniper/internal/delivery/http"
	"cryptosniper/internal/delivery/http/schema"
	"cryptosniper/internal/domain"
	"cryptosniper/internal/events"
	"cryptosniper/internal/infra"
	"cryptosniper/internal/logger"
	"cryptosniper/internal/middleware"
	"cryptosniper/internal/monitoring"
	"cryptosniper/internal/repository"
	"cryptosniper/internal/repository/postgres"
	"cryptosniper/internal/service"
	"cryptosniper/internal/session"
	"cryptosniper/internal/store"
	"cryptosniper/internal/usecase"
)

// repositories is the data-access set handed to the handlers
type repositories struct {
	users      domain.UserRepository
	strategies domain.StrategyRepository
	positions  domain.PositionRepository
	portfolio  domain.PortfolioRepository
	counts     func() map[string]int
}

type sweepableOTPStore interface {
	domain.OTPStore
	infra.Sweepable
}

type sweepableSessionStore interface {
	domain.SessionStore
	infra.Sweepable
}

// sessionBackend is the OTP cache plus the session store
type sessionBackend struct {
	otps     sweepableOTPStore
	sessions sweepableSessionStore
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Env: cfg.Server.Env, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *configs.Config, zlog *zap.Logger) error {
	ctx := context.Background()
	metrics := monitoring.NewMetrics("cryptosniper")
	checks := make(map[string]monitoring.HealthCheck)

	// Storage
	repos, pool, err := buildRepositories(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		checks["postgres"] = pool.Ping
	}

	// OTP cache and sessions
	backend, rdb, err := buildSessionBackend(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Domain events
	var publisher domain.EventPublisher = events.NewLogPublisher(zlog)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zlog.Info("[OK] Kafka event publisher", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zlog.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()
	notifier := events.NewNotifier(publisher, zlog, metrics)

	// OTP delivery
	sender := adapter.NewLogOTPSender(zlog)
	if cfg.OTP.WebhookURL != "" {
		sender = adapter.NewWebhookOTPSender(cfg.OTP.WebhookURL)
		zlog.Info("[OK] OTP webhook delivery", zap.String("url", cfg.OTP.WebhookURL))
	}

	// Use cases and HTTP layer
	validator, err := schema.New()
	if err != nil {
		return fmt.Errorf("failed to compile request schemas: %w", err)
	}
	authService := usecase.NewAuthService(repos.users, backend.otps, sender, notifier, metrics, zlog)
	sessionAuth := middleware.NewSessionAuth(cfg.Auth.SessionSecret, backend.sessions, !cfg.IsDevelopment())
	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	limiter.OnReject(metrics.RateLimited)

	e := delivery.NewServer(&delivery.RouterConfig{
		AuthHandler:      delivery.NewAuthHandler(authService, sessionAuth, validator, zlog),
		UserHandler:      delivery.NewUserHandler(repos.users),
		StrategyHandler:  delivery.NewStrategyHandler(repos.strategies, validator, notifier),
		PositionHandler:  delivery.NewPositionHandler(repos.positions, repos.strategies, validator, notifier),
		PortfolioHandler: delivery.NewPortfolioHandler(repos.portfolio, validator, notifier),
		SessionAuth:      sessionAuth,
		AuthLimiter:      limiter,
		Metrics:          metrics,
		Logger:           zlog,
		AllowOrigins:     cfg.Server.AllowOrigins,
		BodyLimit:        cfg.Server.BodyLimit,
		TrustedProxies:   cfg.Server.TrustedProxies,
	})

	// Background jobs
	scheduler := infra.NewScheduler(zlog, metrics)
	scheduler.AddSweeper("otp", backend.otps)
	scheduler.AddSweeper("session", backend.sessions)
	scheduler.SetLimiter(limiter)
	if repos.counts != nil {
		scheduler.SetStoreCounter(repos.counts)
	}
	revalueSpec := ""
	if cfg.Market.PriceURL != "" {
		prices := service.NewMarketPriceService(cfg.Market.PriceURL)
		scheduler.SetRevaluer(service.NewRevaluationService(repos.positions, prices, metrics, zlog))
		revalueSpec = cfg.Market.RevalueSpec
		zlog.Info("[OK] Position revaluation enabled", zap.String("feed", cfg.Market.PriceURL), zap.String("schedule", revalueSpec))
	}
	if err := scheduler.Start(cfg.Ops.SweepSpec, revalueSpec); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop(cfg.Server.ShutdownTimeout)

	// Listeners
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	apiAddr := ":" + cfg.Server.Port

	opsServer := &http.Server{
		Addr:         ":" + cfg.Ops.Port,
		Handler:      monitoring.NewOpsRouter(metrics, checks),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 2)
	go func() {
		if err := e.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("api listener %s: %w", apiAddr, err)
		}
	}()
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ops listener %s: %w", opsServer.Addr, err)
		}
	}()

	zlog.Info("CryptoSniper API starting",
		zap.String("addr", apiAddr),
		zap.String("ops_addr", opsServer.Addr),
		zap.String("env", cfg.Server.Env),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		zlog.Info("Shutting down", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
		zlog.Error("Listener failed, shutting down", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("API server forced to shutdown", zap.Error(err))
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Ops server forced to shutdown", zap.Error(err))
	}

	zlog.Info("[OK] Server exited gracefully")
	return runErr
}

// buildRepositories picks Postgres when DATABASE_URL is set, else the
// in-memory store
func buildRepositories(ctx context.Context, cfg *configs.Config, zlog *zap.Logger) (*repositories, *pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		st := store.New(nil)
		zlog.Info("[OK] In-memory entity store")
		return &repositories{
			users:      repository.NewUserRepository(st),
			strategies: repository.NewStrategyRepository(st),
			positions:  repository.NewPositionRepository(st),
			portfolio:  repository.NewPortfolioRepository(st),
			counts:     st.Counts,
		}, nil, nil
	}

	pool, err := infra.NewDatabase(ctx, cfg.Database.URL, zlog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, zlog); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &repositories{
		users:      postgres.NewUserRepository(pool),
		strategies: postgres.NewStrategyRepository(pool),
		positions:  postgres.NewPositionRepository(pool),
		portfolio:  postgres.NewPortfolioRepository(pool),
	}, pool, nil
}

// buildSessionBackend picks Redis when REDIS_URL is set, else process memory
func buildSessionBackend(ctx context.Context, cfg *configs.Config, zlog *zap.Logger) (*sessionBackend, *redis.Client, error) {
	if cfg.Redis.URL == "" {
		zlog.Info("[OK] In-memory OTP cache and sessions")
		return &sessionBackend{
			otps:     session.NewMemoryOTPStore(),
			sessions: session.NewMemorySessionStore(nil),
		}, nil, nil
	}

	rdb, err := session.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	zlog.Info("[OK] Redis OTP cache and sessions")
	return &sessionBackend{
		otps:     session.NewRedisOTPStore(rdb),
		sessions: session.NewRedisSessionStore(rdb, nil),
	}, rdb, nil
}

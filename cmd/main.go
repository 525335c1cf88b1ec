/**
 * @description
 * This is the main entry point for the account service. It is responsible for
 * initializing all components of the service, including configuration, the
 * database connection pool, the message broker, the rate limiter, the
 * repository, the core application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - go.uber.org/zap: structured application logging.
 * - internal/api, internal/app, internal/cache, internal/config, internal/store: Internal packages.
 * - pkg/logger, pkg/rabbitmq: Shared infrastructure packages.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/api"
	"github.com/mobipay/account-service/internal/app"
	"github.com/mobipay/account-service/internal/cache"
	"github.com/mobipay/account-service/internal/config"
	"github.com/mobipay/account-service/internal/store"
	applogger "github.com/mobipay/account-service/pkg/logger"
	rmrabbit "github.com/mobipay/account-service/pkg/rabbitmq"
)

func main() {
	// Load an optional .env file before reading configuration.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	zlog, err := applogger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"logger init failed\" err=%v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting account-service", zap.String("port", cfg.ServerPort))

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database url parse failed", zap.Error(err))
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer dbpool.Close()
	zlog.Info("database connected")

	// Initialize the RabbitMQ producer for payment events. Broker outages do
	// not block startup; publishing degrades to the fallback.
	var producer rmrabbit.Publisher
	eventProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL, cfg.PaymentEventsExchange)
	if err != nil {
		zlog.Warn("rabbitmq producer unavailable; using fallback", zap.Error(err))
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		zlog.Info("rabbitmq producer connected")
	}

	// Redis backs the per-provider deposit rate limit. Without it deposits
	// are simply not limited.
	var limiter app.RateLimiter
	if cfg.DepositRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			zlog.Warn("redis url missing; deposit rate limiting disabled")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				zlog.Warn("redis url parse failed; deposit rate limiting disabled", zap.Error(parseErr))
			} else {
				redisClient := redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				pingErr := redisClient.Ping(pingCtx).Err()
				cancelPing()
				if pingErr != nil {
					zlog.Warn("redis ping failed; deposit rate limiting disabled", zap.Error(pingErr))
					redisClient.Close()
				} else {
					defer redisClient.Close()
					limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
					zlog.Info("redis connected")
				}
			}
		}
	}

	// Initialize the data access layer and the application service.
	repository := store.NewPostgresRepository(dbpool, zlog)
	providerCache := cache.NewProviderCache(zlog)

	service := app.NewService(repository, providerCache, producer, limiter, zlog, app.Options{
		CreateMaxAttempts:         cfg.CustomerCreateMaxAttempts,
		CreateBackoff:             time.Duration(cfg.CustomerCreateBackoffMs) * time.Millisecond,
		DepositRateLimitPerMinute: cfg.DepositRateLimitPerMinute,
	})

	if strings.TrimSpace(cfg.AdminJWTSecret) == "" {
		zlog.Warn("admin jwt secret not configured; admin API disabled")
	}

	handlers := api.NewHandlers(service, zlog)
	router := api.Routes(handlers, service, cfg.AdminJWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	zlog.Info("server listening", zap.String("addr", serverAddr))

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	zlog.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}

	zlog.Info("shutdown complete")
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/WarehouseGo/internal/cache"
	rediscache "github.com/utafrali/WarehouseGo/internal/cache/redis"
	"github.com/utafrali/WarehouseGo/internal/config"
	"github.com/utafrali/WarehouseGo/internal/event"
	handler "github.com/utafrali/WarehouseGo/internal/handler/http"
	"github.com/utafrali/WarehouseGo/internal/repository"
	"github.com/utafrali/WarehouseGo/internal/repository/memory"
	"github.com/utafrali/WarehouseGo/internal/repository/postgres"
	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/migrations"
	"github.com/utafrali/WarehouseGo/pkg/database"
	"github.com/utafrali/WarehouseGo/pkg/health"
	pkgkafka "github.com/utafrali/WarehouseGo/pkg/kafka"
	"github.com/utafrali/WarehouseGo/pkg/middleware"
	"github.com/utafrali/WarehouseGo/pkg/tracing"
)

// App wires together all dependencies and runs the warehouse service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.Start(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	gw, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	mirror, err := a.openMirror(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	warmed, err := cache.Warm(ctx, mirror, gw.Queries())
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("warm mirror: %w", err)
	}
	logger.Info("mirror loaded", slog.String("driver", cfg.CacheDriver), slog.Int("products", warmed))

	events := a.openEvents(ctx, healthHandler)

	// Build the dependency graph.
	ledger := service.NewStockLedger(gw, mirror, events, logger, cfg.LowStockThreshold)
	orders := service.NewOrderService(gw, ledger, mirror, events, logger)
	services := handler.Services{
		Ledger:    ledger,
		Orders:    orders,
		Shipments: service.NewShipmentService(gw, orders, mirror, events, logger),
		Suppliers: service.NewSupplierService(gw, ledger, events, logger),
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(services, healthHandler, cors, cfg.RateLimit(), logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStore connects the record store selected by STORE_DRIVER.
func (a *App) openStore(ctx context.Context, hh *health.Handler) (repository.Gateway, error) {
	if a.cfg.StoreDriver == config.StoreDriverMemory {
		a.logger.Warn("using in-memory record store; state is lost on restart")
		return memory.NewGateway(a.cfg.TxTimeout), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	database.RegisterPoolMetrics(pool, handler.ServiceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	if threshold := a.cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, a.logger)
	}

	hh.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewGateway(pool, a.cfg.TxTimeout, a.logger), nil
}

// openMirror builds the read mirror selected by CACHE_DRIVER.
func (a *App) openMirror(ctx context.Context, hh *health.Handler) (cache.Mirror, error) {
	switch a.cfg.CacheDriver {
	case config.CacheDriverNone:
		return cache.Nop{}, nil
	case config.CacheDriverRedis:
		client, err := database.NewRedisClient(ctx, a.cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis().Addr()))
		hh.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		return rediscache.NewMirror(client, a.cfg.CacheTTL), nil
	default:
		return cache.NewLocal(), nil
	}
}

// openEvents returns the Kafka-backed publisher, or a discarding one when
// KAFKA_ENABLED is off. An unreachable broker degrades rather than fails.
func (a *App) openEvents(ctx context.Context, hh *health.Handler) service.EventPublisher {
	if !a.cfg.KafkaEnabled {
		a.logger.Info("kafka disabled; domain events are discarded")
		return event.Discard{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.producer = producer
	if err := pingKafkaWithRetry(ctx, producer, a.logger); err != nil {
		a.logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	}
	hh.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	return event.NewProducer(producer, a.logger)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails.
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
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in dependency order: HTTP server, tracer, Kafka
// producer, Redis, then the PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything opened by NewApp except the HTTP
// server. Safe on a partially built App.
func (a *App) closeResources() []error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errs
}

const kafkaPingAttempts = 3

// pingKafkaWithRetry pings the producer with exponential backoff (1s, 2s
// with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < kafkaPingAttempts; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == kafkaPingAttempts-1 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", kafkaPingAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", kafkaPingAttempts, lastErr)
}

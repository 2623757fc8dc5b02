package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"busticket/internal/app"
	"busticket/internal/config"
	"busticket/internal/handler"
	internalRedis "busticket/internal/redis"
	"busticket/internal/repository"
	"busticket/internal/repository/memory"
	"busticket/internal/repository/postgres"
	"busticket/internal/service"
	"busticket/pkg/logger"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gin.SetMode(cfg.Server.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("failed to initialize New Relic", "error", err)
		} else {
			log.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Storage backend.
	var store backend
	switch cfg.Store.Backend {
	case config.StoreMemory:
		store = memoryBackend(memory.NewStore())
		log.Warn("using in-memory store; data is lost on restart")
	case config.StorePostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
		store = postgresBackend(db)
		log.Info("connected to PostgreSQL", "host", cfg.Database.Host, "database", cfg.Database.DBName)
	default:
		log.Fatal("unknown store backend", "backend", cfg.Store.Backend)
	}

	// Redis is optional: without it there is no reference cache and no idempotency.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp, log.With("component", "redis"))
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		log.Info("connected to Redis", "addr", cfg.Redis.Addr)
	}

	// Wire dependencies.
	server := wireServer(store, redisClient, nrApp, cfg, log)

	// Start server in goroutine.
	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	log.Info("server exited")
}

// backend bundles the repositories and transaction manager of one store.
type backend struct {
	tx          repository.Transactor
	users       repository.UserRepository
	buses       repository.BusRepository
	routes      repository.RouteRepository
	assignments repository.AssignmentRepository
	bookings    repository.BookingRepository
}

func postgresBackend(db *sql.DB) backend {
	return backend{
		tx:          postgres.NewTxManager(db),
		users:       postgres.NewUserRepository(db),
		buses:       postgres.NewBusRepository(db),
		routes:      postgres.NewRouteRepository(db),
		assignments: postgres.NewAssignmentRepository(db),
		bookings:    postgres.NewBookingRepository(db),
	}
}

func memoryBackend(s *memory.Store) backend {
	return backend{
		tx:          s,
		users:       s.Users(),
		buses:       s.Buses(),
		routes:      s.Routes(),
		assignments: s.Assignments(),
		bookings:    s.Bookings(),
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(store backend, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log logger.Logger) *http.Server {
	// Initialize Redis stores.
	var cache internalRedis.ReferenceCache
	var idempotency internalRedis.IdempotencyStoreInterface
	if redisClient != nil {
		cache = internalRedis.NewCacheStore(redisClient)
		idempotency = internalRedis.NewIdempotencyStore(redisClient, internalRedis.NewLockStore(redisClient))
	}

	deps := app.RouterDeps{
		IdempotencyStore: idempotency,
		NewRelicApp:      nrApp,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		Logger:           log,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics, deps.Gatherer = app.NewMetrics(cfg.Metrics.Namespace)
	}

	// Initialize services.
	registry := service.NewRouteRegistry(store.tx, store.routes, store.assignments, store.buses, cache, log.With("component", "registry"), deps.Metrics)
	ledger := service.NewBookingLedger(store.tx, store.bookings, store.users, registry, log.With("component", "ledger"), deps.Metrics)
	busService := service.NewBusService(store.buses, store.users, cache, log.With("component", "buses"))
	notifier := service.NewNotificationService(log.With("component", "notifications"))
	ledger.SetNotifier(notifier)
	busService.SetNotifier(notifier)
	userService := service.NewUserService(store.users, log.With("component", "users"))
	ticketService := service.NewTicketService(store.bookings, store.routes, store.buses, log.With("component", "tickets"))

	// Initialize handlers.
	deps.UserHandler = handler.NewUserHandler(userService)
	deps.BusHandler = handler.NewBusHandler(busService)
	deps.RouteHandler = handler.NewRouteHandler(registry)
	deps.BookingHandler = handler.NewBookingHandler(ledger, ticketService)

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

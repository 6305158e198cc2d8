package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightowl-social/nightowl/internal/config"
	"github.com/nightowl-social/nightowl/internal/database"
	"github.com/nightowl-social/nightowl/internal/handlers"
	"github.com/nightowl-social/nightowl/internal/logging"
	"github.com/nightowl-social/nightowl/internal/middleware"
	"github.com/nightowl-social/nightowl/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting Night Owl ping engine...")

	logger.Info("Connecting to PostgreSQL", logging.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations", logger)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	logger.Info("Connecting to Redis", logging.Fields{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)

	userService := services.NewUserService(dbAdapter)
	friendService := services.NewFriendGraphService(dbAdapter)
	dispatcher := services.NewNotificationDispatcher(dbAdapter, redisDB.Client)
	pingService := services.NewPingService(dbAdapter, friendService, dispatcher, cfg.Ping.TTL(), cfg.Ping.MaxDetailsLength)
	notificationService := services.NewNotificationService(dbAdapter)

	// Expiry sweeper
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	defer cancelSweeps()
	dispatcher.SetAsyncContext(sweepCtx)

	sweeper := services.NewSweeper(pingService, logger, cfg.Ping.SweepInterval(), cfg.Ping.SweepBatchSize)
	if err := sweeper.Start(sweepCtx); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	pingHandler := handlers.NewPingHandler(pingService)
	friendHandler := handlers.NewFriendHandler(friendService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Middleware
	identity := middleware.NewIdentityMiddleware(userService)
	requestLogger := middleware.NewRequestLogger(logger)
	apiRateLimiter := middleware.NewAPIRateLimiter(redisDB.Client)
	pingRateLimiter := middleware.NewPingRateLimiter(redisDB.Client, int(cfg.Ping.CreateRateLimit))

	requireUser := identity.RequireUser

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Ping endpoints
	mux.Handle("POST /api/pings", requireUser(pingRateLimiter.Limit(http.HandlerFunc(pingHandler.Create))))
	mux.Handle("GET /api/pings/open", requireUser(http.HandlerFunc(pingHandler.ListOpen)))
	mux.Handle("GET /api/pings/{id}", requireUser(http.HandlerFunc(pingHandler.Get)))
	mux.Handle("POST /api/pings/{id}/respond", requireUser(http.HandlerFunc(pingHandler.Respond)))
	mux.Handle("POST /api/pings/{id}/cancel", requireUser(http.HandlerFunc(pingHandler.Cancel)))

	// Friend endpoints
	mux.Handle("GET /api/friends", requireUser(http.HandlerFunc(friendHandler.List)))
	mux.Handle("POST /api/friends/requests", requireUser(http.HandlerFunc(friendHandler.SendRequest)))
	mux.Handle("PUT /api/friends/requests/{id}/accept", requireUser(http.HandlerFunc(friendHandler.AcceptRequest)))
	mux.Handle("PUT /api/friends/requests/{id}/decline", requireUser(http.HandlerFunc(friendHandler.DeclineRequest)))

	// Notification poll endpoints
	mux.Handle("GET /api/notifications", requireUser(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/notifications/{id}/read", requireUser(http.HandlerFunc(notificationHandler.MarkRead)))

	// Middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = apiRateLimiter.Limit(handler)
	handler = identity.Resolve(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", logging.Fields{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", logging.Fields{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

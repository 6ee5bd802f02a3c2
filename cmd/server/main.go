/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the occupancy engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config (.env, YAML, environment)
  2. Open the store (memory, SQLite or PostgreSQL)
  3. Wire the settlement saga: outcome cache, notifiers
  4. Create API handler and router
  5. Start the follow-up scheduler when enabled
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config        YAML config file (optional)
  -port          HTTP server port (overrides config)
  -store         Store driver: memory, sqlite, postgres (overrides config)
  -db            SQLite database path (overrides config)
                 Use ":memory:" for in-memory database
  -issue-token   Print an operator token for the given operator ID and exit

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close store, cache and Kafka writer
  5. Exit

EXAMPLES:
  # Run with file database
  JWT_SECRET=... ./server -store=sqlite -db="./data/occupancy.db"

  # Run against PostgreSQL with a config file
  ./server -config=config.yaml -store=postgres

  # Get a token for local testing
  JWT_SECRET=... ./server -issue-token=op-1

SEE ALSO:
  - config/config.go: Configuration and environment variables
  - api/server.go: Router configuration
  - settlement/saga.go: Checkout settlement
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/occupancy-engine/api"
	"github.com/warp/occupancy-engine/cache"
	"github.com/warp/occupancy-engine/config"
	"github.com/warp/occupancy-engine/logging"
	"github.com/warp/occupancy-engine/notify"
	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/occupancy/store"
	"github.com/warp/occupancy-engine/settlement"
	"github.com/warp/occupancy-engine/store/postgres"
	"github.com/warp/occupancy-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port")
	driver := flag.String("store", "", "Store driver: memory, sqlite, postgres")
	dbPath := flag.String("db", "", "SQLite database path")
	issueToken := flag.String("issue-token", "", "Print a token for this operator ID and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	auth := api.NewOperatorAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if *issueToken != "" {
		token, err := auth.IssueToken(occupancy.OperatorID(*issueToken), 24*time.Hour)
		if err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, logger, auth); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, auth *api.OperatorAuth) error {
	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}()

	// Initialize store
	st, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// Notifiers
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.SendGrid.Enabled() {
		notifiers = append(notifiers, notify.NewSendGridNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName))
		logger.Info("sendgrid notifications enabled", "from", cfg.SendGrid.FromEmail)
	}
	if cfg.Kafka.Enabled() {
		k := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, k)
		notifiers = append(notifiers, k)
		logger.Info("kafka checkout events enabled", "topic", cfg.Kafka.Topic)
	}

	// Settlement saga
	saga := settlement.NewSaga(st, notifiers, settlement.Config{
		StepTimeout:   cfg.Saga.StepTimeout,
		NotifyTimeout: cfg.Saga.NotifyTimeout,
		Recipients:    cfg.Saga.Recipients,
	})
	saga.Logger = logger
	if cfg.Redis.Enabled() {
		outcomes, client := cache.NewRedisOutcomeCache(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		closers = append(closers, client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, settlement cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			saga.Cache = outcomes
			logger.Info("settlement cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	// Initialize handler and router
	handler := api.NewHandler(st, saga)
	router := api.NewRouter(handler, api.RouterOptions{
		Auth:            auth,
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		EnableScenarios: cfg.Server.EnableScenarios,
	})

	// Follow-up scheduler
	var scheduler *api.FollowUpScheduler
	if cfg.Scheduler.Enabled {
		scheduler = api.NewFollowUpScheduler(st, notifiers, cfg.Saga.Recipients)
		scheduler.Logger = logger
		if err := scheduler.Start(cfg.Scheduler.FollowUp); err != nil {
			return err
		}
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "scenarios", cfg.Server.EnableScenarios)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serveErr:
		if scheduler != nil {
			scheduler.Stop()
		}
		return fmt.Errorf("server failed: %w", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore opens the configured store. The closer is nil for the memory store.
func openStore(ctx context.Context, cfg config.StoreConfig) (occupancy.Store, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return store.NewMemory(), nil, nil
	}
}

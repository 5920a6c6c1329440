/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the frozen-foods back office server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store (collections + payroll run log)
  3. Wire change notifications (in-process, plus Redis when configured)
  4. Create API handler and seed the default admins
  5. Start the payroll scheduler
  6. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the payroll scheduler (waits for a running job)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close Redis and database connections
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/tess.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Share change events between instances
  REDIS_URL=redis://localhost:6379/0 ./server

ENVIRONMENT:
  See config/config.go for every key.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tess/backoffice/api"
	"github.com/tess/backoffice/config"
	"github.com/tess/backoffice/notify"
	"github.com/tess/backoffice/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Change notifications
	origin := uuid.NewString()
	local := notify.NewLocal()
	defer local.Close()
	publishers := notify.Publishers{local}

	if cfg.RedisURL != "" {
		client, err := notify.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()

		remote := notify.NewRedis(client, origin)
		publishers = append(publishers, remote)
		go func() {
			if err := remote.Forward(ctx, local); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[Notify] Redis forwarding stopped: %v", err)
			}
		}()
	}

	// Initialize handler
	handler := api.NewHandler(notify.Wrap(store, publishers, origin), api.NewTokens(cfg.JWTSecret, cfg.TokenTTL), store)
	handler.Location = cfg.Location
	handler.AdminPassword = cfg.AdminPassword
	handler.Accounts.Cost = cfg.BcryptCost
	handler.Events = local

	if err := handler.Accounts.Seed(ctx, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin accounts: %v", err)
	}

	// Payroll scheduler
	handler.Scheduler.Spec = cfg.PayrollCron
	handler.Scheduler.Enabled = cfg.PayrollCronEnabled
	handler.Scheduler.Location = cfg.Location
	if err := handler.Scheduler.Start(); err != nil {
		log.Fatalf("Failed to start payroll scheduler: %v", err)
	}

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost%s", cfg.Addr())
		log.Printf("API available at http://localhost%s/api", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	handler.Scheduler.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

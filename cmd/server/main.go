package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/application/usecase/accounts"
	"github.com/healthwatch/healthwatch/application/usecase/query"
	syncuc "github.com/healthwatch/healthwatch/application/usecase/sync"
	"github.com/healthwatch/healthwatch/infrastructure/adapter/postgres"
	"github.com/healthwatch/healthwatch/infrastructure/config"
	"github.com/healthwatch/healthwatch/infrastructure/http/handler"
	"github.com/healthwatch/healthwatch/infrastructure/http/middleware"
	"github.com/healthwatch/healthwatch/infrastructure/metrics"
	"github.com/healthwatch/healthwatch/infrastructure/service/apikey"
	"github.com/healthwatch/healthwatch/infrastructure/service/credentials"
	"github.com/healthwatch/healthwatch/infrastructure/service/healthapi"
	"github.com/healthwatch/healthwatch/infrastructure/service/jwt"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
	"github.com/healthwatch/healthwatch/infrastructure/service/ratelimit"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "healthwatch",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	// Connect to database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	// Initialize repositories
	accountDirectory := postgres.NewAccountDirectoryRepository(db)
	eventStore := postgres.NewEventStoreRepository(db, cfg.PersistBatchSize)

	// Initialize collaborator clients
	var credentialService outbound.CredentialService
	credentialService = credentials.NewSTSClient(cfg.CredentialServiceURL, cfg.CollaboratorTimeout, structuredLogger)
	if cfg.CredentialCacheOn {
		cached, err := credentials.NewCachingCredentialService(credentialService, cfg.RedisURL, structuredLogger)
		if err != nil {
			structuredLogger.Error(ctx, "Credential cache unavailable, continuing without it", err, map[string]interface{}{
				"redis_url": cfg.RedisURL,
			})
		} else {
			credentialService = cached
		}
	}
	healthClient := healthapi.NewClient(cfg.HealthAPIURL, cfg.CollaboratorTimeout, structuredLogger)

	// Initialize rate limiting service (Redis-backed or noop based on config)
	rateLimitService, err := ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled:  cfg.RateLimitEnabled,
		RedisURL: cfg.RedisURL,
		Attempts: cfg.RateLimitAttempts,
		Window:   cfg.RateLimitWindow,
	}, structuredLogger)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize rate limit service", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		log.Fatalf("Failed to initialize rate limit service: %v", err)
	}

	// Initialize auth services
	var jwtService *jwt.JWTService
	if cfg.AuthEnabled {
		jwtService, err = jwt.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
		if err != nil {
			log.Fatalf("Failed to initialize JWT service: %v", err)
		}
	}
	apiKeyService := apikey.NewService(cfg.APIKeyHash)

	// Initialize sync pipeline
	broker := syncuc.NewCredentialBroker(credentialService)
	discovery := syncuc.NewEventDiscovery(healthClient, outbound.EventFilter{})
	details := syncuc.NewDetailFanout(healthClient, cfg.DetailBatchSize, structuredLogger)
	impact := syncuc.NewImpactFanout(healthClient, structuredLogger)
	persister := syncuc.NewPersister(eventStore, accountDirectory)

	syncUseCase := syncuc.NewOrchestrator(
		accountDirectory,
		broker,
		discovery,
		details,
		impact,
		persister,
		structuredLogger,
		syncuc.Config{
			RetentionWindow: cfg.RetentionWindow(),
			Concurrency:     cfg.SyncConcurrency,
			RunDeadline:     cfg.RunDeadline,
		},
	)
	accountUseCase := accounts.NewAccountUseCase(accountDirectory)
	queryUseCase := query.NewQueryUseCase(eventStore)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, apiKeyService, cfg.AuthEnabled)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService, structuredLogger)

	// Initialize handlers
	syncHandler := handler.NewSyncHandler(syncUseCase, structuredLogger)
	accountHandler := handler.NewAccountHandler(accountUseCase, structuredLogger)
	queryHandler := handler.NewEventQueryHandler(queryUseCase, structuredLogger)

	// Setup routes
	router := mux.NewRouter()
	router.Handle("/v1/sync", rateLimitMiddleware.RateLimit(authMiddleware.RequireAuth(syncHandler.TriggerSync))).Methods(http.MethodPost)

	router.HandleFunc("/v1/accounts", authMiddleware.RequireAuth(accountHandler.Register)).Methods(http.MethodPost)
	router.HandleFunc("/v1/accounts", authMiddleware.RequireAuth(accountHandler.List)).Methods(http.MethodGet)
	router.HandleFunc("/v1/accounts/{account_id}", authMiddleware.RequireAuth(accountHandler.Update)).Methods(http.MethodPut)
	router.HandleFunc("/v1/accounts/deregister", authMiddleware.RequireAuth(accountHandler.Deregister)).Methods(http.MethodPost)

	router.HandleFunc("/v1/events", authMiddleware.RequireAuth(queryHandler.ListEvents)).Methods(http.MethodGet)
	router.HandleFunc("/v1/events/detail", authMiddleware.RequireAuth(queryHandler.GetEventDetail)).Methods(http.MethodGet)
	router.HandleFunc("/v1/events/affected-accounts", authMiddleware.RequireAuth(queryHandler.ListAffectedAccounts)).Methods(http.MethodGet)
	router.HandleFunc("/v1/events/affected-entities", authMiddleware.RequireAuth(queryHandler.ListAffectedEntities)).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	// Compose middleware: CorrelationID then CORS (if enabled)
	var rootHandler http.Handler = middleware.CorrelationIDMiddleware(router)
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		rootHandler = middleware.CORSMiddleware(rootHandler, cfg.CORSAllowedOrigins, false)
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background loops: the scheduled sync and the retention sweep.
	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	if cfg.SyncInterval > 0 {
		go runSyncLoop(loopCtx, syncUseCase, cfg.SyncInterval, structuredLogger)
	}
	if cfg.SweepInterval > 0 {
		go runRetentionSweep(loopCtx, eventStore, cfg.SweepInterval, structuredLogger)
	}

	// Start server in goroutine
	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"addr": cfg.ServerAddr(),
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"addr": cfg.ServerAddr(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)
	stopLoops()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}

// runSyncLoop triggers a full sync on a fixed interval. The trigger
// endpoint shares the same use case, so a manual run between ticks is
// safe: every run is idempotent over its window.
func runSyncLoop(ctx context.Context, syncUseCase inbound.SyncUseCase, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := syncUseCase.Sync(ctx, inbound.SyncRequest{})
			if err != nil {
				log.Error(ctx, "Scheduled sync run failed", err, nil)
				continue
			}
			log.Info(ctx, "Scheduled sync run finished", map[string]interface{}{
				"run_id":          res.RunID,
				"events":          res.TotalEventCount,
				"failed_accounts": res.FailedAccountIDs,
			})
		}
	}
}

// runRetentionSweep periodically deletes records past their expiration.
func runRetentionSweep(ctx context.Context, store outbound.EventStore, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Error(ctx, "Retention sweep failed", err, nil)
				continue
			}
			if deleted > 0 {
				metrics.ExpiredRecordsDeleted.Add(float64(deleted))
				log.Info(ctx, "Retention sweep removed expired records", map[string]interface{}{
					"deleted": deleted,
				})
			}
		}
	}
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	syncuc "github.com/healthwatch/healthwatch/application/usecase/sync"
	"github.com/healthwatch/healthwatch/infrastructure/adapter/postgres"
	"github.com/healthwatch/healthwatch/infrastructure/config"
	"github.com/healthwatch/healthwatch/infrastructure/service/credentials"
	"github.com/healthwatch/healthwatch/infrastructure/service/healthapi"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// One-shot pipeline run for cron jobs and operators, without going
// through the HTTP trigger.
func main() {
	accountsFlag := flag.String("accounts", "", "comma-separated account IDs to sync (default: all registered)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "healthwatch-sync",
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	accountDirectory := postgres.NewAccountDirectoryRepository(db)
	eventStore := postgres.NewEventStoreRepository(db, cfg.PersistBatchSize)

	var credentialService outbound.CredentialService
	credentialService = credentials.NewSTSClient(cfg.CredentialServiceURL, cfg.CollaboratorTimeout, structuredLogger)
	if cfg.CredentialCacheOn {
		cached, err := credentials.NewCachingCredentialService(credentialService, cfg.RedisURL, structuredLogger)
		if err != nil {
			structuredLogger.Error(ctx, "Credential cache unavailable, continuing without it", err, nil)
		} else {
			credentialService = cached
		}
	}
	healthClient := healthapi.NewClient(cfg.HealthAPIURL, cfg.CollaboratorTimeout, structuredLogger)

	orchestrator := syncuc.NewOrchestrator(
		accountDirectory,
		syncuc.NewCredentialBroker(credentialService),
		syncuc.NewEventDiscovery(healthClient, outbound.EventFilter{}),
		syncuc.NewDetailFanout(healthClient, cfg.DetailBatchSize, structuredLogger),
		syncuc.NewImpactFanout(healthClient, structuredLogger),
		syncuc.NewPersister(eventStore, accountDirectory),
		structuredLogger,
		syncuc.Config{
			RetentionWindow: cfg.RetentionWindow(),
			Concurrency:     cfg.SyncConcurrency,
			RunDeadline:     cfg.RunDeadline,
		},
	)
	var req inbound.SyncRequest
	if *accountsFlag != "" {
		for _, id := range strings.Split(*accountsFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.AccountIDs = append(req.AccountIDs, id)
			}
		}
	}

	res, err := orchestrator.Sync(ctx, req)
	if err != nil {
		log.Fatalf("Sync run failed: %v", err)
	}

	structuredLogger.Info(ctx, "Sync run finished", map[string]interface{}{
		"run_id":                       res.RunID,
		"earliest_event_time":          res.EarliestEventTime,
		"total_event_count":            res.TotalEventCount,
		"total_detail_count":           res.TotalDetailCount,
		"total_affected_account_count": res.TotalAffectedAccountCount,
		"total_affected_entity_count":  res.TotalAffectedEntityCount,
		"failed_account_ids":           res.FailedAccountIDs,
	})
}

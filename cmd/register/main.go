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
	"github.com/healthwatch/healthwatch/application/usecase/accounts"
	"github.com/healthwatch/healthwatch/infrastructure/adapter/postgres"
	"github.com/healthwatch/healthwatch/infrastructure/config"
)

// Registers accounts directly against the database, for bootstrapping an
// installation before the HTTP API is up. Accounts are given as
// account_id:role_name pairs.
func main() {
	pairs := flag.String("accounts", "", "comma-separated account_id:role_name pairs")
	flag.Parse()

	if *pairs == "" {
		log.Fatal("-accounts is required, e.g. -accounts 111111111111:HealthRole,222222222222:HealthRole")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var req inbound.RegisterAccountsRequest
	for _, pair := range strings.Split(*pairs, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			log.Fatalf("Invalid account pair: %q", pair)
		}
		req.Accounts = append(req.Accounts, inbound.AccountRegistration{
			AccountID: parts[0],
			RoleName:  parts[1],
		})
	}

	useCase := accounts.NewAccountUseCase(postgres.NewAccountDirectoryRepository(db))
	res, err := useCase.RegisterAccounts(ctx, req)
	if err != nil {
		log.Fatalf("Failed to register accounts: %v", err)
	}

	log.Printf("Registered %d account(s): %s", len(res.Registered), strings.Join(res.Registered, ", "))
}

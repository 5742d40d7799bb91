package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/healthwatch/healthwatch/infrastructure/config"
	"github.com/healthwatch/healthwatch/infrastructure/service/apikey"
	"github.com/healthwatch/healthwatch/infrastructure/service/jwt"
)

// Provisioning tool for ops API credentials: hashes an API key for the
// API_KEY_HASH setting, or mints a bearer token for an operator.
func main() {
	apiKey := flag.String("api-key", "", "plaintext API key to hash")
	subject := flag.String("token-for", "", "operator name to mint a bearer token for")
	flag.Parse()

	if *apiKey == "" && *subject == "" {
		log.Fatal("one of -api-key or -token-for is required")
	}

	if *apiKey != "" {
		hash, err := apikey.Hash(*apiKey)
		if err != nil {
			log.Fatalf("Failed to hash API key: %v", err)
		}
		fmt.Printf("API_KEY_HASH=%s\n", hash)
	}

	if *subject != "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		jwtService, err := jwt.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
		if err != nil {
			log.Fatalf("Failed to initialize JWT service: %v", err)
		}
		token, err := jwtService.GenerateToken(*subject)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
	}
}

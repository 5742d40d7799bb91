package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	ServerHost  string
	ServerPort  string
	Environment string

	LogLevel  string
	LogFormat string

	// Ops API protection
	JWTSecret      string
	APIKeyHash     string
	AuthEnabled    bool
	AccessTokenTTL time.Duration

	// Collaborator endpoints
	CredentialServiceURL string
	HealthAPIURL         string
	CollaboratorTimeout  time.Duration

	// Sync pipeline
	RetentionDays     int
	DetailBatchSize   int
	PersistBatchSize  int
	SyncConcurrency   int
	RunDeadline       time.Duration
	SyncInterval      time.Duration
	SweepInterval     time.Duration
	CredentialCacheOn bool

	// Sync trigger rate limit
	RateLimitEnabled  bool
	RateLimitAttempts int
	RateLimitWindow   time.Duration

	// CORS
	CORSEnabled        bool
	CORSAllowedOrigins []string
}

var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required when auth is enabled")
	ErrMissingCredentialService = errors.New("CREDENTIAL_SERVICE_URL is required")
	ErrMissingHealthAPI         = errors.New("HEALTH_API_URL is required")
	ErrInvalidRetention         = errors.New("RETENTION_DAYS must be positive")
	ErrInvalidBatchSize         = errors.New("DETAIL_BATCH_SIZE must be between 1 and 10")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		ServerHost:  getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("ENV", "development"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		APIKeyHash:     os.Getenv("API_KEY_HASH"),
		AuthEnabled:    getEnvOrDefaultBool("AUTH_ENABLED", true),
		AccessTokenTTL: getEnvOrDefaultDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),

		CredentialServiceURL: os.Getenv("CREDENTIAL_SERVICE_URL"),
		HealthAPIURL:         os.Getenv("HEALTH_API_URL"),
		CollaboratorTimeout:  getEnvOrDefaultDuration("COLLABORATOR_TIMEOUT", 30*time.Second),

		RetentionDays:     getEnvOrDefaultInt("RETENTION_DAYS", 90),
		DetailBatchSize:   getEnvOrDefaultInt("DETAIL_BATCH_SIZE", 10),
		PersistBatchSize:  getEnvOrDefaultInt("PERSIST_BATCH_SIZE", 100),
		SyncConcurrency:   getEnvOrDefaultInt("SYNC_CONCURRENCY", 1),
		RunDeadline:       getEnvOrDefaultDuration("RUN_DEADLINE", 15*time.Minute),
		SyncInterval:      getEnvOrDefaultDuration("SYNC_INTERVAL", time.Hour),
		SweepInterval:     getEnvOrDefaultDuration("SWEEP_INTERVAL", 6*time.Hour),
		CredentialCacheOn: getEnvOrDefaultBool("CREDENTIAL_CACHE_ENABLED", true),

		RateLimitEnabled:  getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RateLimitAttempts: getEnvOrDefaultInt("RATE_LIMIT_ATTEMPTS", 5),
		RateLimitWindow:   getEnvOrDefaultDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		CORSEnabled:        getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowedOrigins: parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.CredentialServiceURL == "" {
		return nil, ErrMissingCredentialService
	}
	if cfg.HealthAPIURL == "" {
		return nil, ErrMissingHealthAPI
	}
	if cfg.RetentionDays <= 0 {
		return nil, ErrInvalidRetention
	}
	if cfg.DetailBatchSize < 1 || cfg.DetailBatchSize > 10 {
		return nil, ErrInvalidBatchSize
	}

	return cfg, nil
}

// RetentionWindow is the configured retention as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) ServerAddr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept plain seconds as well as Go duration syntax.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseAllowedOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package config

import (
	"errors"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/healthwatch")
	t.Setenv("CREDENTIAL_SERVICE_URL", "http://sts.internal")
	t.Setenv("HEALTH_API_URL", "http://health.internal")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load should succeed: %v", err)
		}
		if cfg.RetentionDays != 90 {
			t.Errorf("expected 90-day default retention, got %d", cfg.RetentionDays)
		}
		if cfg.RetentionWindow() != 90*24*time.Hour {
			t.Errorf("unexpected retention window: %v", cfg.RetentionWindow())
		}
		if cfg.DetailBatchSize != 10 {
			t.Errorf("expected detail batch default of 10, got %d", cfg.DetailBatchSize)
		}
		if cfg.SyncConcurrency != 1 {
			t.Errorf("expected sequential default, got %d", cfg.SyncConcurrency)
		}
		if cfg.ServerAddr() != "localhost:8080" {
			t.Errorf("unexpected server addr: %s", cfg.ServerAddr())
		}
	})

	t.Run("MissingDatabaseURL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DATABASE_URL", "")

		if _, err := Load(); !errors.Is(err, ErrMissingDatabaseURL) {
			t.Errorf("expected ErrMissingDatabaseURL, got %v", err)
		}
	})

	t.Run("MissingJWTSecretWhenAuthEnabled", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("JWT_SECRET", "")

		if _, err := Load(); !errors.Is(err, ErrMissingJWTSecret) {
			t.Errorf("expected ErrMissingJWTSecret, got %v", err)
		}
	})

	t.Run("AuthDisabledNeedsNoSecret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("JWT_SECRET", "")
		t.Setenv("AUTH_ENABLED", "false")

		if _, err := Load(); err != nil {
			t.Errorf("Load should succeed with auth disabled: %v", err)
		}
	})

	t.Run("BatchSizeBounds", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DETAIL_BATCH_SIZE", "11")

		if _, err := Load(); !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", err)
		}
	})

	t.Run("DurationAcceptsSecondsAndGoSyntax", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RUN_DEADLINE", "300")
		t.Setenv("SYNC_INTERVAL", "2h")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load should succeed: %v", err)
		}
		if cfg.RunDeadline != 5*time.Minute {
			t.Errorf("plain seconds should parse, got %v", cfg.RunDeadline)
		}
		if cfg.SyncInterval != 2*time.Hour {
			t.Errorf("Go duration syntax should parse, got %v", cfg.SyncInterval)
		}
	})
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", cfg.App.Addr())
	}
	if cfg.Postgres.MaxConns != 10 || !cfg.Postgres.RunMigrations {
		t.Fatalf("postgres defaults not applied: %+v", cfg.Postgres)
	}
	if cfg.Redis.ChangeChannel != "helpdesk:changes" {
		t.Fatalf("unexpected channel %q", cfg.Redis.ChangeChannel)
	}
	if cfg.Worker.ReconcileInterval() != time.Minute {
		t.Fatalf("unexpected reconcile interval %s", cfg.Worker.ReconcileInterval())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("MINIO_PRESIGN_TTL_MINUTES", "5")
	t.Setenv("WORKER_RECONCILE_INTERVAL_SECONDS", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" || !cfg.Mongo.Transactions {
		t.Fatalf("overrides not applied: %+v %+v", cfg.App, cfg.Mongo)
	}
	if cfg.Objects.PresignTTL() != 5*time.Minute {
		t.Fatalf("unexpected presign ttl %s", cfg.Objects.PresignTTL())
	}
	if cfg.Worker.ReconcileInterval() != 0 {
		t.Fatal("zero interval should disable the worker")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

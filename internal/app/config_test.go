package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":50051" {
		t.Errorf("expected GRPCAddr :50051, got %s", cfg.GRPCAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.CatalogDriver != CatalogDriverMemory {
		t.Errorf("expected CatalogDriver %s, got %s", CatalogDriverMemory, cfg.CatalogDriver)
	}
	if cfg.ReviewDriver != ReviewDriverMemory {
		t.Errorf("expected ReviewDriver %s, got %s", ReviewDriverMemory, cfg.ReviewDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected IdempotencyTTL %s", cfg.IdempotencyTTL)
	}
	if cfg.OutboxBatchSize <= 0 || cfg.OutboxMaxAttempts <= 0 || cfg.OutboxPollInterval <= 0 {
		t.Error("expected positive outbox settings")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "postgres without dsn", mutate: func(c *Config) { c.CatalogDriver = CatalogDriverPostgres }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.CatalogDriver = CatalogDriverPostgres
			c.PostgresDSN = "postgres://localhost/urbanfood"
		}},
		{name: "unknown catalog driver", mutate: func(c *Config) { c.CatalogDriver = "oracle" }, wantErr: true},
		{name: "redis reviews without addr", mutate: func(c *Config) { c.ReviewDriver = ReviewDriverRedis }, wantErr: true},
		{name: "redis reviews", mutate: func(c *Config) {
			c.ReviewDriver = ReviewDriverRedis
			c.RedisAddr = "localhost:6379"
		}},
		{name: "dynamodb without table", mutate: func(c *Config) {
			c.ReviewDriver = ReviewDriverDynamoDB
			c.DynamoTable = ""
		}, wantErr: true},
		{name: "unknown review driver", mutate: func(c *Config) { c.ReviewDriver = "mongo" }, wantErr: true},
		{name: "empty http addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

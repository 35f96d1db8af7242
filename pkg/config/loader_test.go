package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_DB_REGION", "eu-west-1")
	t.Setenv("APP_DB_TABLE", "posts")

	cfg, err := NewViperLoader("", "APP").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Type != DatabaseTypeDynamoDB {
		t.Fatalf("expected default type %q, got %q", DatabaseTypeDynamoDB, cfg.Database.Type)
	}
	if cfg.Database.HashKey != "id" {
		t.Fatalf("expected default hash key id, got %q", cfg.Database.HashKey)
	}
	if cfg.Database.OperationTimeout != 5*time.Second {
		t.Fatalf("expected default operation timeout 5s, got %v", cfg.Database.OperationTimeout)
	}
	if !cfg.Observability.MetricsEnabled {
		t.Fatal("expected metrics enabled by default")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := []byte("database:\n  region: us-east-1\n  table: posts\n  hash_key: postId\n")
	if err := os.WriteFile(file, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("APP_DB_REGION", "eu-central-1")

	cfg, err := NewViperLoader(file, "APP").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Region != "eu-central-1" {
		t.Fatalf("expected env override eu-central-1, got %q", cfg.Database.Region)
	}
	if cfg.Database.HashKey != "postId" {
		t.Fatalf("expected file value postId, got %q", cfg.Database.HashKey)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := NewViperLoader("/does/not/exist.yaml", "APP").Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	loader := NewViperLoader("", "APP")
	cfg := DefaultConfig()
	cfg.Database.Type = "mongodb"
	cfg.Database.Region = ""
	cfg.Database.Table = ""
	cfg.Observability.LogLevel = "loud"

	err := loader.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"database.type", "database.region", "database.table", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error mentioning %q, got: %v", want, err)
		}
	}
}

func TestValidate_IndexesRequireNameAndHashKey(t *testing.T) {
	loader := NewViperLoader("", "APP")
	cfg := DefaultConfig()
	cfg.Database.Region = "eu-west-1"
	cfg.Database.Table = "posts"
	cfg.Database.Indexes = []IndexConfig{{RangeKey: "createdAt"}}

	err := loader.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for incomplete index")
	}
}

func TestValidate_CreateTableRequiresCapacity(t *testing.T) {
	loader := NewViperLoader("", "APP")
	cfg := DefaultConfig()
	cfg.Database.Region = "eu-west-1"
	cfg.Database.Table = "posts"
	cfg.Database.CreateTable = true
	cfg.Database.ReadCapacity = 0

	if err := loader.Validate(cfg); err == nil {
		t.Fatal("expected validation error for zero read capacity")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Gateway.SearcherURL != "http://localhost:8081" {
		t.Errorf("Gateway.SearcherURL = %q, want http://localhost:8081", cfg.Gateway.SearcherURL)
	}
	if cfg.Corpus.Source != "postgres" {
		t.Errorf("Corpus.Source = %q, want postgres", cfg.Corpus.Source)
	}
	if cfg.Corpus.RebuildDebounce != 2*time.Second {
		t.Errorf("Corpus.RebuildDebounce = %v, want 2s", cfg.Corpus.RebuildDebounce)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("Search.DefaultLimit = %d, want 5", cfg.Search.DefaultLimit)
	}
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled should default to false")
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled should default to true")
	}
	if cfg.Kafka.Topics.CorpusUpdates != "corpus-updates" {
		t.Errorf("Kafka.Topics.CorpusUpdates = %q, want corpus-updates", cfg.Kafka.Topics.CorpusUpdates)
	}
	if cfg.Analytics.BatchSize != 1 {
		t.Errorf("Analytics.BatchSize = %d, want 1", cfg.Analytics.BatchSize)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9999
corpus:
  source: file
  path: /tmp/corpus.json
search:
  defaultLimit: 20
auth:
  enabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Corpus.Source != "file" {
		t.Errorf("Corpus.Source = %q, want file", cfg.Corpus.Source)
	}
	if cfg.Corpus.Path != "/tmp/corpus.json" {
		t.Errorf("Corpus.Path = %q, want /tmp/corpus.json", cfg.Corpus.Path)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("Search.DefaultLimit = %d, want 20", cfg.Search.DefaultLimit)
	}
	if !cfg.Auth.Enabled {
		t.Error("Auth.Enabled should be true")
	}
	// Values absent from the file keep their defaults.
	if cfg.Search.MaxLimit != 100 {
		t.Errorf("Search.MaxLimit = %d, want default 100", cfg.Search.MaxLimit)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want default 5432", cfg.Postgres.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CE_SERVER_PORT", "7070")
	t.Setenv("CE_POSTGRES_HOST", "db.internal")
	t.Setenv("CE_KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("CE_REDIS_ENABLED", "false")
	t.Setenv("CE_AUTH_ENABLED", "true")
	t.Setenv("CE_CORPUS_SOURCE", "file")
	t.Setenv("CE_METRICS_PORT", "9191")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [kafka1:9092 kafka2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled should be overridden to false")
	}
	if !cfg.Auth.Enabled {
		t.Error("Auth.Enabled should be overridden to true")
	}
	if cfg.Corpus.Source != "file" {
		t.Errorf("Corpus.Source = %q, want file", cfg.Corpus.Source)
	}
	if cfg.Metrics.Port != 9191 {
		t.Errorf("Metrics.Port = %d, want 9191", cfg.Metrics.Port)
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("CE_SERVER_PORT", "not-a-number")
	t.Setenv("CE_AUTH_ENABLED", "not-a-bool")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080 for unparseable override", cfg.Server.Port)
	}
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled should stay false for unparseable override")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "contextengine",
		User:     "app",
		Password: "secret",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=app password=secret dbname=contextengine sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

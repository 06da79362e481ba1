package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/parrot-test
  cache_size: 64MB
security:
  admin_key: s3cret
  rate_limit:
    rps: 5
    burst: 10
chat:
  max_replies_per_entry: 7
  query_timeout: 250ms
  cache:
    ttl: 10s
retention:
  enabled: true
  cron: "0 3 * * *"
  idle_period: 720h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parrotdb.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.Security.AdminKey != "s3cret" || cfg.Security.RateLimit.RPS != 5 {
		t.Fatalf("security: %+v", cfg.Security)
	}
	if cfg.Chat.MaxRepliesPerEntry != 7 {
		t.Fatalf("max replies = %d", cfg.Chat.MaxRepliesPerEntry)
	}
	if cfg.Chat.QueryTimeout.Duration() != 250*time.Millisecond {
		t.Fatalf("query timeout = %v", cfg.Chat.QueryTimeout.Duration())
	}
	if cfg.Storage.CacheSize.Int64() != 64*1000*1000 {
		t.Fatalf("store cache size = %d", cfg.Storage.CacheSize.Int64())
	}
	if !cfg.Retention.Enabled || cfg.Retention.IdlePeriod.Duration() != 720*time.Hour {
		t.Fatalf("retention: %+v", cfg.Retention)
	}
	// untouched fields still get defaults
	if cfg.Chat.MaxReactionsPerEntry != DefaultMaxReactionsPerEntry {
		t.Fatalf("reaction default missing: %d", cfg.Chat.MaxReactionsPerEntry)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Storage.DBPath != "./data" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.Chat.QueryTimeout.Duration() != DefaultQueryTimeout {
		t.Fatalf("query timeout default: %v", cfg.Chat.QueryTimeout.Duration())
	}
	if cfg.Retention.Cron != "0 2 * * *" {
		t.Fatalf("cron default: %q", cfg.Retention.Cron)
	}
}

func TestLoadBadYAMLFails(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not a map")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARROTDB_ADDR", "0.0.0.0:7070")
	t.Setenv("PARROTDB_ADMIN_KEY", "env-key")
	t.Setenv("PARROTDB_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PARROTDB_RATE_RPS", "2.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !LoadEnvOverrides(cfg) {
		t.Fatalf("env overrides not detected")
	}
	if cfg.Addr() != "0.0.0.0:7070" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.Security.AdminKey != "env-key" {
		t.Fatalf("admin key = %q", cfg.Security.AdminKey)
	}
	if len(cfg.Security.CORS.AllowedOrigins) != 2 || cfg.Security.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: %v", cfg.Security.CORS.AllowedOrigins)
	}
	if cfg.Security.RateLimit.RPS != 2.5 {
		t.Fatalf("rps = %v", cfg.Security.RateLimit.RPS)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg, _ := Load("")
	ApplyFlags(cfg, "10.0.0.1:6060", "/var/lib/parrotdb", map[string]bool{"addr": true, "db": true})
	if cfg.Addr() != "10.0.0.1:6060" || cfg.Storage.DBPath != "/var/lib/parrotdb" {
		t.Fatalf("flags not applied: %q %q", cfg.Addr(), cfg.Storage.DBPath)
	}
	// unset flags leave config alone
	before := cfg.Addr()
	ApplyFlags(cfg, ":9999", "ignored", map[string]bool{})
	if cfg.Addr() != before {
		t.Fatalf("unset flag mutated config")
	}
}

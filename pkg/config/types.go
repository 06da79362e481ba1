package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Security  SecurityConfig  `yaml:"security"`
	Chat      ChatConfig      `yaml:"chat"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds the embedded store settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
	// OpenRetries bounds the connection-establishment retry loop; backoff
	// doubles between attempts. Individual operations are never retried.
	OpenRetries int      `yaml:"open_retries"`
	OpenBackoff Duration `yaml:"open_backoff"`
	// CacheSize bounds the store's block cache; zero uses the engine
	// default.
	CacheSize SizeBytes `yaml:"cache_size"`
}

// SecurityConfig holds the admin secret and request gating settings.
type SecurityConfig struct {
	// AdminKey is the single shared admin secret, compared by equality.
	AdminKey string `yaml:"admin_key"`
	CORS     struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
}

// ChatConfig holds the catalog caps and responder settings.
type ChatConfig struct {
	MaxRepliesPerEntry   int      `yaml:"max_replies_per_entry"`
	MaxReactionsPerEntry int      `yaml:"max_reactions_per_entry"`
	MaxRepliesPerCall    int      `yaml:"max_replies_per_call"`
	QueryTimeout         Duration `yaml:"query_timeout"`
	// FallbackFile optionally points at a JSON array of fallback replies;
	// changes to the file are picked up without a restart.
	FallbackFile string      `yaml:"fallback_file"`
	Cache        CacheConfig `yaml:"cache"`
}

// CacheConfig bounds the lookup response cache.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// RetentionConfig controls the scheduled purge of dead and long-idle
// entries.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	// IdlePeriod removes never-used entries older than this; zero disables
	// idle pruning and only empty entries are purged.
	IdlePeriod Duration `yaml:"idle_period"`
	DryRun     bool     `yaml:"dry_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SizeBytes is a byte count unmarshaled from human-friendly strings like
// "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration with YAML parsing from strings like "100ms"
// or plain numbers interpreted as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

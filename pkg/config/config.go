// Package config loads the service configuration from a YAML file, applies
// environment overrides (PARROTDB_*), and fills defaults. Flags parsed in
// cmd win over env, which wins over the file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a field unset.
const (
	DefaultMaxRepliesPerEntry   = 100
	DefaultMaxReactionsPerEntry = 20
	DefaultMaxRepliesPerCall    = 50
	DefaultQueryTimeout         = 5 * time.Second
	DefaultCacheTTL             = 30 * time.Second
	DefaultCacheMaxEntries      = 1024
	DefaultOpenRetries          = 3
	DefaultOpenBackoff          = time.Second
)

// Load reads the YAML config at path. A missing file is not an error; the
// zero config plus defaults is returned.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				applyDefaults(cfg)
				return cfg, nil
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data"
	}
	if cfg.Storage.OpenRetries == 0 {
		cfg.Storage.OpenRetries = DefaultOpenRetries
	}
	if cfg.Storage.OpenBackoff.Duration() == 0 {
		cfg.Storage.OpenBackoff = Duration(DefaultOpenBackoff)
	}
	if cfg.Chat.MaxRepliesPerEntry == 0 {
		cfg.Chat.MaxRepliesPerEntry = DefaultMaxRepliesPerEntry
	}
	if cfg.Chat.MaxReactionsPerEntry == 0 {
		cfg.Chat.MaxReactionsPerEntry = DefaultMaxReactionsPerEntry
	}
	if cfg.Chat.MaxRepliesPerCall == 0 {
		cfg.Chat.MaxRepliesPerCall = DefaultMaxRepliesPerCall
	}
	if cfg.Chat.QueryTimeout.Duration() == 0 {
		cfg.Chat.QueryTimeout = Duration(DefaultQueryTimeout)
	}
	if cfg.Chat.Cache.TTL.Duration() == 0 {
		cfg.Chat.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if cfg.Chat.Cache.MaxEntries == 0 {
		cfg.Chat.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Retention.Cron == "" {
		cfg.Retention.Cron = "0 2 * * *"
	}
}

// LoadEnvOverrides applies PARROTDB_* environment overrides onto cfg and
// reports whether any env var was used.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	if v := os.Getenv("PARROTDB_ADDR"); v != "" {
		used = true
		host, port := splitAddr(v)
		cfg.Server.Address = host
		if port != 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PARROTDB_DB_PATH"); v != "" {
		used = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("PARROTDB_ADMIN_KEY"); v != "" {
		used = true
		cfg.Security.AdminKey = v
	}
	if v := os.Getenv("PARROTDB_ALLOWED_ORIGINS"); v != "" {
		used = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("PARROTDB_IP_WHITELIST"); v != "" {
		used = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("PARROTDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			used = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("PARROTDB_FALLBACK_FILE"); v != "" {
		used = true
		cfg.Chat.FallbackFile = v
	}
	if v := os.Getenv("PARROTDB_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	return used
}

// ResolveConfigPath decides the config file path from the flag value and
// the PARROTDB_CONFIG env var when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("PARROTDB_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// ParseCommandFlags registers and parses the standard command-line flags.
// It returns the raw values plus a set of which flags the user supplied.
func ParseCommandFlags() (addr, db, cfgPath string, set map[string]bool) {
	addrF := flag.String("addr", ":8080", "listen address")
	dbF := flag.String("db", "./data", "path to the catalog database directory")
	cfgF := flag.String("config", "parrotdb.yaml", "path to YAML config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrF, *dbF, *cfgF, set
}

// ApplyFlags overlays explicitly-set command-line flags onto cfg. Flags win
// over both the config file and environment.
func ApplyFlags(cfg *Config, addr, db string, set map[string]bool) {
	if set["addr"] {
		host, port := splitAddr(addr)
		cfg.Server.Address = host
		if port != 0 {
			cfg.Server.Port = port
		}
	}
	if set["db"] {
		cfg.Storage.DBPath = db
	}
}

func parseList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitAddr(a string) (string, int) {
	i := strings.LastIndex(a, ":")
	if i < 0 {
		return a, 0
	}
	p, err := strconv.Atoi(a[i+1:])
	if err != nil {
		return a, 0
	}
	return a[:i], p
}

package app

import (
	"fmt"

	"github.com/adhocore/gronx"

	"parrotdb/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the configuration
// before starting long-running services. Keep checks light and focused so
// callers can surface user-friendly errors.
func validateConfig(cfg *config.Config) error {
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, PARROTDB_DB_PATH env, or storage.db_path in config")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Retention.Enabled && cfg.Retention.Cron != "" && !gronx.IsValid(cfg.Retention.Cron) {
		return fmt.Errorf("invalid retention.cron expression: %s", cfg.Retention.Cron)
	}
	if rl := cfg.Security.RateLimit; rl.RPS < 0 || rl.Burst < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}
	if cfg.Chat.MaxRepliesPerCall > cfg.Chat.MaxRepliesPerEntry && cfg.Chat.MaxRepliesPerEntry > 0 && cfg.Chat.MaxRepliesPerCall > 0 {
		return fmt.Errorf("chat.max_replies_per_call (%d) cannot exceed chat.max_replies_per_entry (%d)",
			cfg.Chat.MaxRepliesPerCall, cfg.Chat.MaxRepliesPerEntry)
	}
	return nil
}

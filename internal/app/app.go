// Package app wires configuration, storage, the chat service and the HTTP
// server into one lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"parrotdb/internal/retention"
	"parrotdb/pkg/banner"
	"parrotdb/pkg/chat"
	"parrotdb/pkg/config"
	"parrotdb/pkg/fallback"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string

	catalog *store.Catalog
	fb      *fallback.Pool
	svc     *chat.Service
	srv     *httpServer
	stopRet context.CancelFunc
}

// New initializes resources that do not require a running context: env
// overrides, config validation, the catalog and the chat service. Call Run
// to start the HTTP server and retention scheduler.
func New(cfg *config.Config, version string) (*App, error) {
	_ = godotenv.Load(".env")
	config.LoadEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	catalog, err := store.OpenWithRetry(cfg.Storage.DBPath, cfg.Storage.OpenRetries,
		cfg.Storage.OpenBackoff.Duration(), cfg.Storage.CacheSize.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog at %s: %w", cfg.Storage.DBPath, err)
	}

	fb, err := fallback.NewPool(cfg.Chat.FallbackFile)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to load fallback replies: %w", err)
	}

	svc := chat.New(catalog, fb, chat.Config{
		MaxRepliesPerEntry:   cfg.Chat.MaxRepliesPerEntry,
		MaxReactionsPerEntry: cfg.Chat.MaxReactionsPerEntry,
		MaxRepliesPerCall:    cfg.Chat.MaxRepliesPerCall,
		CacheTTL:             cfg.Chat.Cache.TTL.Duration(),
		CacheMaxEntries:      cfg.Chat.Cache.MaxEntries,
	})

	return &App{cfg: cfg, version: version, catalog: catalog, fb: fb, svc: svc}, nil
}

// Run starts the retention scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopRet, err := retention.Start(ctx, a.svc, a.cfg.Retention)
	if err != nil {
		return err
	}
	a.stopRet = stopRet

	banner.Print(a.cfg, a.version)

	a.srv = newHTTPServer(a)
	errCh := a.srv.start()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close shuts down the HTTP server, the retention scheduler, the fallback
// watcher and the catalog, in that order.
func (a *App) Close(ctx context.Context) {
	if a.srv != nil {
		if err := a.srv.shutdown(ctx); err != nil {
			logger.Warn("http shutdown incomplete", zap.Error(err))
		}
	}
	if a.stopRet != nil {
		a.stopRet()
	}
	if a.fb != nil {
		a.fb.Close()
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			logger.Warn("catalog close failed", zap.Error(err))
		}
	}
}

// Package retention prunes stale catalog entries on a cron schedule:
// empty entries left behind by repeated removals, and never-used entries
// idle past the configured period.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"parrotdb/pkg/chat"
	"parrotdb/pkg/config"
	"parrotdb/pkg/logger"
)

// Start launches the retention scheduler if enabled. Returns a cancel func
// that stops the scheduler goroutine.
func Start(ctx context.Context, svc *chat.Service, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("invalid retention cron", zap.String("cron", cronExpr))
		return nil, fmt.Errorf("invalid retention cron expression: %s", cronExpr)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, svc, cfg, cronExpr)
	logger.Info("retention scheduler started",
		zap.String("cron", cronExpr),
		zap.Duration("idle_period", cfg.IdlePeriod.Duration()),
		zap.Bool("dry_run", cfg.DryRun))
	return cancel, nil
}

// runScheduler computes the next tick with gronx and sleeps until then.
func runScheduler(ctx context.Context, svc *chat.Service, cfg config.RetentionConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention scheduler stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention next-tick computation failed",
				zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention scheduler stopping")
			return
		}

		runOnce(ctx, svc, cfg)
	}
}

// RunOnce triggers a single retention pass immediately, outside the cron
// schedule. Used by tests and manual admin triggers.
func RunOnce(ctx context.Context, svc *chat.Service, cfg config.RetentionConfig) (int, error) {
	return svc.Purge(ctx, cfg.IdlePeriod.Duration(), cfg.DryRun)
}

func runOnce(ctx context.Context, svc *chat.Service, cfg config.RetentionConfig) {
	start := time.Now()
	n, err := RunOnce(ctx, svc, cfg)
	if err != nil {
		logger.Error("retention run failed", zap.Error(err))
		return
	}
	logger.Info("retention run complete",
		zap.Int("pruned", n),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Duration("took", time.Since(start)))
}

package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parrotdb/pkg/logger"
)

// Purge removes logically-deleted entries (no replies, no reactions) and,
// when idlePeriod > 0, entries that were never looked up and are older
// than idlePeriod. Returns the number of entries removed. With dryRun the
// candidates are only counted.
func (s *Service) Purge(ctx context.Context, idlePeriod time.Duration, dryRun bool) (int, error) {
	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for i := range entries {
		e := &entries[i]
		stale := e.Empty()
		if !stale && idlePeriod > 0 && e.UsageCount == 0 && now.Sub(e.CreatedAt) > idlePeriod {
			stale = true
		}
		if !stale {
			continue
		}
		if dryRun {
			removed++
			continue
		}
		unlock := s.catalog.LockKey(e.Message)
		n, derr := s.catalog.Delete(ctx, e.Message)
		unlock()
		if derr != nil {
			logger.Warn("purge_delete_failed", zap.String("message", e.Message), zap.Error(derr))
			continue
		}
		removed += n
	}
	if removed > 0 && !dryRun {
		s.cache.flush()
	}
	logger.Info("purge_complete", zap.Int("removed", removed), zap.Bool("dry_run", dryRun))
	return removed, nil
}

package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parrotdb/pkg/glyph"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/models"
	"parrotdb/pkg/normalize"
	"parrotdb/pkg/telemetry"
)

// Modes accepted by Lookup.
const (
	ModeRandom     = "random"
	ModeSequential = "sequential"
)

// Lookup resolves a free-text query and shapes the reply. A miss is not
// an error: the result carries found=false and a fallback reply. On a
// hit, usage telemetry is persisted without blocking the response.
func (s *Service) Lookup(ctx context.Context, text, mode string) (models.LookupResult, error) {
	query, err := normalize.Key(text)
	if err != nil {
		return models.LookupResult{}, err
	}
	entry, stage, err := s.resolve(ctx, query)
	if err != nil {
		return models.LookupResult{}, err
	}
	if entry == nil || len(entry.Replies) == 0 {
		telemetry.LookupsTotal.WithLabelValues("fallback").Inc()
		return models.LookupResult{
			Found:     false,
			Reply:     glyph.Transform(s.fallback.Pick()),
			Reactions: []string{},
		}, nil
	}

	var reply string
	if mode == ModeSequential {
		// the sequential cursor must be durable for the cycle to be
		// deterministic across calls, so it is persisted synchronously
		// together with the usage counters
		next := (entry.LastIndex + 1) % len(entry.Replies)
		reply = entry.Replies[next]
		s.persistUsage(ctx, entry.Message, next)
	} else {
		reply = entry.Replies[s.randIdx(len(entry.Replies))]
		// usage accounting is fire-and-forget for the random path; the
		// response must not block on or fail with it
		msg := entry.Message
		go func() {
			ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.persistUsage(ctx2, msg, -2)
		}()
	}

	telemetry.LookupsTotal.WithLabelValues("found").Inc()
	logger.Debug("lookup_hit", zap.String("query", query),
		zap.String("matched", entry.Message), zap.String("stage", stage))

	reactions := entry.Reactions
	if reactions == nil {
		reactions = []string{}
	}
	return models.LookupResult{
		Found:     true,
		Reply:     glyph.Transform(reply),
		Reactions: reactions,
		Matched:   entry.Message,
	}, nil
}

// persistUsage bumps usageCount and lastUsedAt for a served entry. When
// lastIndex >= 0 the sequential cursor is updated as well; -2 leaves it
// untouched. Failures are logged and counted, never surfaced.
func (s *Service) persistUsage(ctx context.Context, message string, lastIndex int) {
	unlock := s.catalog.LockKey(message)
	defer unlock()
	e, err := s.catalog.Get(ctx, message)
	if err != nil {
		telemetry.UsageWritesTotal.WithLabelValues("failed").Inc()
		logger.Warn("usage_update_load_failed", zap.String("message", message), zap.Error(err))
		return
	}
	e.UsageCount++
	now := s.now()
	e.LastUsedAt = &now
	if lastIndex >= 0 {
		e.LastIndex = lastIndex
	}
	if err := s.catalog.Update(ctx, message, e); err != nil {
		telemetry.UsageWritesTotal.WithLabelValues("failed").Inc()
		logger.Warn("usage_update_failed", zap.String("message", message), zap.Error(err))
		return
	}
	telemetry.UsageWritesTotal.WithLabelValues("ok").Inc()
}

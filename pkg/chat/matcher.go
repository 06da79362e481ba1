package chat

import (
	"context"
	"strings"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/models"
	"parrotdb/pkg/normalize"
	"parrotdb/pkg/telemetry"
)

// resolve maps a normalized query to at most one entry. Stages, in order:
// exact key lookup, substring containment over a full scan, then keyword
// fallback. Containment tries both directions per entry, checking
// query-contains-message before message-contains-query; the first hit in
// scan order wins, with no ranking by length or specificity. The result
// is deterministic for a fixed catalog and scan order.
func (s *Service) resolve(ctx context.Context, query string) (*models.Entry, string, error) {
	now := s.now()
	if msg, ok := s.cache.get(query, now); ok {
		if e, err := s.catalog.Get(ctx, msg); err == nil {
			telemetry.MatchStageTotal.WithLabelValues("cache").Inc()
			return e, "cache", nil
		}
		// cached entry vanished; fall through to a fresh resolution
	}

	e, err := s.catalog.Get(ctx, query)
	if err == nil {
		s.cache.put(query, e.Message, now)
		telemetry.MatchStageTotal.WithLabelValues("exact").Inc()
		return e, "exact", nil
	}
	if !cerr.Is(err, cerr.NotFound) {
		return nil, "", err
	}

	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return nil, "", err
	}

	for i := range entries {
		m := entries[i].Message
		if strings.Contains(query, m) || strings.Contains(m, query) {
			s.cache.put(query, m, now)
			telemetry.MatchStageTotal.WithLabelValues("containment").Inc()
			return &entries[i], "containment", nil
		}
	}

	for _, tok := range normalize.Tokens(query) {
		for i := range entries {
			if strings.Contains(entries[i].Message, tok) {
				s.cache.put(query, entries[i].Message, now)
				telemetry.MatchStageTotal.WithLabelValues("keyword").Inc()
				return &entries[i], "keyword", nil
			}
		}
	}

	telemetry.MatchStageTotal.WithLabelValues("none").Inc()
	return nil, "none", nil
}

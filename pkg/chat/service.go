// Package chat implements the teachable-chatbot core: resolving free-text
// queries against the catalog, merging taught replies, and shaping the
// outgoing reply. Transport concerns live in pkg/api; persistence in
// pkg/store.
package chat

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/fallback"
	"parrotdb/pkg/models"
	"parrotdb/pkg/normalize"
	"parrotdb/pkg/store"
)

const (
	maxSearchQueryLen = 100
	previewReplies    = 3
	recentWindow      = 7 * 24 * time.Hour
)

// Config carries the catalog caps and cache bounds.
type Config struct {
	MaxRepliesPerEntry   int
	MaxReactionsPerEntry int
	MaxRepliesPerCall    int
	CacheTTL             time.Duration
	CacheMaxEntries      int
}

// Service is the chat core. All methods are safe for concurrent use.
type Service struct {
	catalog  *store.Catalog
	fallback *fallback.Pool
	cache    *queryCache
	cfg      Config
	now      func() time.Time
	randIdx  func(n int) int
}

// New builds a Service over an opened catalog.
func New(catalog *store.Catalog, fb *fallback.Pool, cfg Config) *Service {
	if cfg.MaxRepliesPerEntry <= 0 {
		cfg.MaxRepliesPerEntry = 100
	}
	if cfg.MaxReactionsPerEntry <= 0 {
		cfg.MaxReactionsPerEntry = 20
	}
	if cfg.MaxRepliesPerCall <= 0 {
		cfg.MaxRepliesPerCall = 50
	}
	return &Service{
		catalog:  catalog,
		fallback: fb,
		cache:    newQueryCache(cfg.CacheTTL, cfg.CacheMaxEntries),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		randIdx:  rand.Intn,
	}
}

// FlushCache drops every cached query resolution. Callers that mutate the
// catalog outside the Service (bulk clears, restores) must call it.
func (s *Service) FlushCache() { s.cache.flush() }

// Remove deletes the whole entry for a message.
func (s *Service) Remove(ctx context.Context, message string) (models.RemoveResult, error) {
	key, err := normalize.Key(message)
	if err != nil {
		return models.RemoveResult{}, err
	}
	unlock := s.catalog.LockKey(key)
	defer unlock()
	n, err := s.catalog.Delete(ctx, key)
	if err != nil {
		return models.RemoveResult{}, err
	}
	if n == 0 {
		return models.RemoveResult{}, cerr.New(cerr.NotFound, "no entry for %q", key)
	}
	s.cache.flush()
	return models.RemoveResult{Message: key, Deleted: true}, nil
}

// RemoveAt deletes one reply by 1-based index. Removing the last reply
// removes the whole entry.
func (s *Service) RemoveAt(ctx context.Context, message string, index int) (models.RemoveResult, error) {
	key, err := normalize.Key(message)
	if err != nil {
		return models.RemoveResult{}, err
	}
	unlock := s.catalog.LockKey(key)
	defer unlock()
	e, err := s.catalog.Get(ctx, key)
	if err != nil {
		return models.RemoveResult{}, err
	}
	if index < 1 || index > len(e.Replies) {
		return models.RemoveResult{}, cerr.New(cerr.Validation, "invalid reply index %d for %q", index, key)
	}
	e.Replies = append(e.Replies[:index-1], e.Replies[index:]...)
	if len(e.Replies) == 0 {
		if _, err := s.catalog.Delete(ctx, key); err != nil {
			return models.RemoveResult{}, err
		}
		s.cache.flush()
		return models.RemoveResult{Message: key, Deleted: true}, nil
	}
	if e.LastIndex >= len(e.Replies) {
		e.LastIndex = len(e.Replies) - 1
	}
	e.UpdatedAt = s.now()
	if err := s.catalog.Update(ctx, key, e); err != nil {
		return models.RemoveResult{}, err
	}
	s.cache.flush()
	return models.RemoveResult{Message: key, Remaining: len(e.Replies)}, nil
}

// Edit renames a message key. The target must not exist; on any failure
// nothing changes.
func (s *Service) Edit(ctx context.Context, oldMessage, newMessage string) (models.EditResult, error) {
	oldKey, err := normalize.Key(oldMessage)
	if err != nil {
		return models.EditResult{}, err
	}
	newKey, err := normalize.Key(newMessage)
	if err != nil {
		return models.EditResult{}, err
	}
	if oldKey == newKey {
		return models.EditResult{}, cerr.New(cerr.Validation, "old and new messages are identical")
	}
	unlock := s.catalog.LockPair(oldKey, newKey)
	defer unlock()
	if _, err := s.catalog.Rename(ctx, oldKey, newKey, s.now()); err != nil {
		return models.EditResult{}, err
	}
	s.cache.flush()
	return models.EditResult{From: oldKey, To: newKey}, nil
}

// List returns a paginated catalog listing plus per-teacher counts.
func (s *Service) List(ctx context.Context, cmd models.Command) (models.ListResult, error) {
	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return models.ListResult{}, err
	}
	now := s.now()
	filtered := entries[:0]
	for i := range entries {
		e := &entries[i]
		switch cmd.Filter {
		case "mostUsed":
			if e.UsageCount == 0 {
				continue
			}
		case "recent":
			if now.Sub(e.CreatedAt) > recentWindow {
				continue
			}
		}
		filtered = append(filtered, *e)
	}

	switch cmd.Sort {
	case "newest":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})
	case "popular":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].UsageCount > filtered[j].UsageCount
		})
	default:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Message < filtered[j].Message
		})
	}

	teacherCounts := map[string]int{}
	for i := range filtered {
		if by := filtered[i].CreatedBy; by != "" {
			teacherCounts[by]++
		}
	}

	page, limit := normPage(cmd.Page, cmd.Limit, 50, 200)
	window, pg := paginate(filtered, page, limit)
	return models.ListResult{
		Entries:       summaries(window),
		Pagination:    pg,
		TeacherCounts: teacherCounts,
	}, nil
}

// ListOne returns the full entry for a message.
func (s *Service) ListOne(ctx context.Context, message string) (*models.Entry, error) {
	key, err := normalize.Key(message)
	if err != nil {
		return nil, err
	}
	return s.catalog.Get(ctx, key)
}

// Search finds entries whose message or replies contain the query,
// case-insensitively, with pagination.
func (s *Service) Search(ctx context.Context, cmd models.Command) (models.SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(normalize.Sanitize(cmd.Query)))
	if q == "" || len(q) > maxSearchQueryLen {
		return models.SearchResult{}, cerr.New(cerr.Validation, "search query must be 1-%d characters", maxSearchQueryLen)
	}
	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return models.SearchResult{}, err
	}
	var hits []models.Entry
	for i := range entries {
		e := &entries[i]
		if strings.Contains(e.Message, q) {
			hits = append(hits, *e)
			continue
		}
		for _, r := range e.Replies {
			if strings.Contains(strings.ToLower(r), q) {
				hits = append(hits, *e)
				break
			}
		}
	}
	if cmd.Sort == "newest" {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].CreatedAt.After(hits[j].CreatedAt) })
	} else {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].UsageCount > hits[j].UsageCount })
	}
	page, limit := normPage(cmd.Page, cmd.Limit, 20, 100)
	window, pg := paginate(hits, page, limit)
	return models.SearchResult{Query: q, Results: summaries(window), Pagination: pg}, nil
}

// Random returns a random entry with one of its replies chosen at random.
// No usage telemetry is recorded.
func (s *Service) Random(ctx context.Context) (models.RandomResult, error) {
	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return models.RandomResult{}, err
	}
	if len(entries) == 0 {
		return models.RandomResult{}, cerr.New(cerr.NotFound, "catalog is empty")
	}
	e := entries[s.randIdx(len(entries))]
	reply := "No reply available"
	if len(e.Replies) > 0 {
		reply = e.Replies[s.randIdx(len(e.Replies))]
	}
	return models.RandomResult{
		Message:    e.Message,
		Reply:      reply,
		Category:   e.Category,
		Type:       e.Type,
		UsageCount: e.UsageCount,
	}, nil
}

// Stats aggregates catalog-wide statistics.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	st := models.Stats{
		TotalMessages: len(entries),
		Categories:    map[string]int{},
		Types:         map[string]int{},
	}
	for i := range entries {
		e := &entries[i]
		st.TotalReplies += len(e.Replies)
		st.TotalReactions += len(e.Reactions)
		if e.Category != "" {
			st.Categories[e.Category]++
		}
		if e.Type != "" {
			st.Types[e.Type]++
		}
		if st.LastUpdated == nil || e.UpdatedAt.After(*st.LastUpdated) {
			t := e.UpdatedAt
			st.LastUpdated = &t
		}
	}
	byUsage := append([]models.Entry(nil), entries...)
	sort.SliceStable(byUsage, func(i, j int) bool { return byUsage[i].UsageCount > byUsage[j].UsageCount })
	if len(byUsage) > 10 {
		byUsage = byUsage[:10]
	}
	st.MostUsed = summaries(byUsage)
	return st, nil
}

func summaries(entries []models.Entry) []models.EntrySummary {
	out := make([]models.EntrySummary, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		preview := e.Replies
		if len(preview) > previewReplies {
			preview = preview[:previewReplies]
		}
		out = append(out, models.EntrySummary{
			Message:    e.Message,
			Preview:    append([]string(nil), preview...),
			ReplyCount: len(e.Replies),
			UsageCount: e.UsageCount,
			Category:   e.Category,
			Type:       e.Type,
			LastUsedAt: e.LastUsedAt,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		})
	}
	return out
}

func normPage(page, limit, defLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func paginate(entries []models.Entry, page, limit int) ([]models.Entry, models.Pagination) {
	total := len(entries)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return entries[start:end], models.Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// capped truncates a slice to at most n items.
func capped(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

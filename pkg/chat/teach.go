package chat

import (
	"context"

	"go.uber.org/zap"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/models"
	"parrotdb/pkg/normalize"
	"parrotdb/pkg/telemetry"
)

// Teach creates or merges an entry. The merge is a read-modify-write
// under the key's stripe lock; a create that races another create is
// retried once as an update, so concurrent teaches never lose replies.
func (s *Service) Teach(ctx context.Context, cmd models.Command) (models.TeachResult, error) {
	key, err := normalize.Key(cmd.Message)
	if err != nil {
		return models.TeachResult{}, err
	}
	if len(cmd.Replies) > s.cfg.MaxRepliesPerCall {
		return models.TeachResult{}, cerr.New(cerr.Validation,
			"too many replies: maximum %d per call", s.cfg.MaxRepliesPerCall)
	}
	incoming := make([]string, 0, len(cmd.Replies))
	for _, raw := range cmd.Replies {
		r, err := normalize.Reply(raw)
		if err != nil {
			return models.TeachResult{}, err
		}
		incoming = append(incoming, r)
	}
	incoming = dedupe(incoming)
	if len(incoming) == 0 {
		return models.TeachResult{}, cerr.New(cerr.Validation, "at least one valid reply is required")
	}
	reactions, err := s.cleanReactions(cmd.Reactions)
	if err != nil {
		return models.TeachResult{}, err
	}

	unlock := s.catalog.LockKey(key)
	defer unlock()

	res, err := s.mergeTeach(ctx, key, incoming, reactions, cmd)
	if err != nil {
		return models.TeachResult{}, err
	}
	s.cache.flush()
	outcome := "updated"
	if res.Created {
		outcome = "created"
	}
	telemetry.TeachTotal.WithLabelValues(outcome).Inc()
	logger.Info("taught", zap.String("message", key),
		zap.Bool("created", res.Created), zap.Int("replies", res.ReplyCount))
	return res, nil
}

func (s *Service) mergeTeach(ctx context.Context, key string, incoming, reactions []string, cmd models.Command) (models.TeachResult, error) {
	contributor := cmd.Contributor
	if contributor == "" {
		contributor = "unknown"
	}
	now := s.now()

	existing, err := s.catalog.Get(ctx, key)
	switch {
	case err == nil:
		// merge path
	case cerr.Is(err, cerr.NotFound):
		e := &models.Entry{
			Message:   key,
			Replies:   capped(incoming, s.cfg.MaxRepliesPerEntry),
			Reactions: capped(reactions, s.cfg.MaxReactionsPerEntry),
			Teachers:  []string{contributor},
			CreatedBy: contributor,
			LastIndex: -1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyTags(e, cmd.Tags)
		ierr := s.catalog.Insert(ctx, e)
		if ierr == nil {
			return models.TeachResult{
				Message: key, Created: true,
				ReplyCount: len(e.Replies), ReactionCount: len(e.Reactions),
			}, nil
		}
		if !cerr.Is(ierr, cerr.Duplicate) {
			return models.TeachResult{}, ierr
		}
		// another create won the race; merge into it
		existing, err = s.catalog.Get(ctx, key)
		if err != nil {
			return models.TeachResult{}, err
		}
	default:
		return models.TeachResult{}, err
	}

	existing.Replies = capped(dedupe(append(existing.Replies, incoming...)), s.cfg.MaxRepliesPerEntry)
	if len(reactions) > 0 {
		existing.Reactions = capped(dedupe(append(existing.Reactions, reactions...)), s.cfg.MaxReactionsPerEntry)
	}
	if !existing.HasTeacher(contributor) {
		existing.Teachers = append(existing.Teachers, contributor)
	}
	applyTags(existing, cmd.Tags)
	existing.UpdatedAt = now
	if err := s.catalog.Update(ctx, key, existing); err != nil {
		return models.TeachResult{}, err
	}
	return models.TeachResult{
		Message: key,
		ReplyCount: len(existing.Replies), ReactionCount: len(existing.Reactions),
	}, nil
}

// TeachReactions attaches reactions to a message without touching its
// replies; an absent entry is created with no replies.
func (s *Service) TeachReactions(ctx context.Context, cmd models.Command) (models.TeachResult, error) {
	key, err := normalize.Key(cmd.Message)
	if err != nil {
		return models.TeachResult{}, err
	}
	reactions, err := s.cleanReactions(cmd.Reactions)
	if err != nil {
		return models.TeachResult{}, err
	}
	if len(reactions) == 0 {
		return models.TeachResult{}, cerr.New(cerr.Validation, "at least one reaction is required")
	}
	contributor := cmd.Contributor
	if contributor == "" {
		contributor = "unknown"
	}
	now := s.now()

	unlock := s.catalog.LockKey(key)
	defer unlock()

	existing, err := s.catalog.Get(ctx, key)
	if cerr.Is(err, cerr.NotFound) {
		e := &models.Entry{
			Message:   key,
			Reactions: capped(reactions, s.cfg.MaxReactionsPerEntry),
			Teachers:  []string{contributor},
			CreatedBy: contributor,
			LastIndex: -1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if ierr := s.catalog.Insert(ctx, e); ierr != nil {
			if !cerr.Is(ierr, cerr.Duplicate) {
				return models.TeachResult{}, ierr
			}
			existing, err = s.catalog.Get(ctx, key)
			if err != nil {
				return models.TeachResult{}, err
			}
		} else {
			s.cache.flush()
			return models.TeachResult{Message: key, Created: true, ReactionCount: len(e.Reactions)}, nil
		}
	} else if err != nil {
		return models.TeachResult{}, err
	}

	existing.Reactions = capped(dedupe(append(existing.Reactions, reactions...)), s.cfg.MaxReactionsPerEntry)
	existing.UpdatedAt = now
	if err := s.catalog.Update(ctx, key, existing); err != nil {
		return models.TeachResult{}, err
	}
	s.cache.flush()
	return models.TeachResult{
		Message: key,
		ReplyCount: len(existing.Replies), ReactionCount: len(existing.Reactions),
	}, nil
}

func (s *Service) cleanReactions(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		cleaned, err := normalize.Reply(r)
		if err != nil {
			return nil, err
		}
		out = append(out, cleaned)
	}
	return dedupe(out), nil
}

func applyTags(e *models.Entry, t models.Tags) {
	if t.Category != "" {
		e.Category = normalize.Sanitize(t.Category)
	}
	if t.Type != "" {
		e.Type = normalize.Sanitize(t.Type)
	}
	if t.Language != "" {
		e.Language = normalize.Sanitize(t.Language)
	}
	if t.Key != "" {
		e.Key = normalize.Sanitize(t.Key)
	}
}

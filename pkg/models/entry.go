package models

import "time"

// Entry is the single persisted record: one taught message and everything
// attached to it. Message is the normalized key and is unique across the
// catalog; the store enforces uniqueness on insert.
type Entry struct {
	Message string `json:"message"`
	// Replies keeps insertion order; first-seen order matters for the
	// sequential reply mode. Duplicates are removed on merge.
	Replies []string `json:"replies"`
	// Reactions is a deduplicated set of short strings/emoji.
	Reactions []string `json:"reactions,omitempty"`
	// Teachers is the set of contributor ids that taught replies here.
	// It grows by union and never shrinks automatically.
	Teachers  []string `json:"teachers,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`

	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	// LastIndex is the reply index served by the previous sequential
	// lookup; -1 means no sequential lookup has happened yet.
	LastIndex int `json:"last_index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Free-form classification tags, stored verbatim when supplied.
	Category string `json:"category,omitempty"`
	Type     string `json:"type,omitempty"`
	Language string `json:"language,omitempty"`
	Key      string `json:"key,omitempty"`

	// Seq is the store-assigned insertion index; it fixes the scan order
	// used by the matcher fallbacks. Managed by the store, preserved on
	// rename.
	Seq uint64 `json:"seq"`
}

// Empty reports whether the entry carries no replies and no reactions.
// Such an entry is logically deleted and must be physically removed.
func (e *Entry) Empty() bool {
	return len(e.Replies) == 0 && len(e.Reactions) == 0
}

// HasTeacher reports whether the contributor already appears in Teachers.
func (e *Entry) HasTeacher(id string) bool {
	for _, t := range e.Teachers {
		if t == id {
			return true
		}
	}
	return false
}

package models

import "time"

// TeachResult reports the outcome of a teach or teach-react call.
type TeachResult struct {
	Message       string `json:"message"`
	Created       bool   `json:"created"`
	ReplyCount    int    `json:"reply_count"`
	ReactionCount int    `json:"reaction_count,omitempty"`
}

// LookupResult is the success-shaped response for a text lookup. A miss is
// not an error: Found is false and Reply carries a fallback string.
type LookupResult struct {
	Found     bool     `json:"found"`
	Reply     string   `json:"reply"`
	Reactions []string `json:"reactions"`
	// Matched is the catalog key that answered the lookup; empty on a miss.
	Matched string `json:"matched,omitempty"`
}

// RemoveResult reports what a remove or remove-at call did.
type RemoveResult struct {
	Message string `json:"message"`
	// Deleted is true when the whole entry was removed.
	Deleted   bool `json:"deleted"`
	Remaining int  `json:"remaining"`
}

// EditResult reports a successful rename.
type EditResult struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EntrySummary is the compact per-entry projection used by list and search.
type EntrySummary struct {
	Message    string     `json:"message"`
	Preview    []string   `json:"reply,omitempty"`
	ReplyCount int        `json:"reply_count"`
	UsageCount int64      `json:"usage_count"`
	Category   string     `json:"category,omitempty"`
	Type       string     `json:"type,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Pagination describes the window applied to list and search results.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// ListResult is the paginated catalog listing.
type ListResult struct {
	Entries    []EntrySummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
	// TeacherCounts maps contributor id to the number of entries created.
	TeacherCounts map[string]int `json:"teacher_counts,omitempty"`
}

// SearchResult is the paginated search response.
type SearchResult struct {
	Query      string         `json:"query"`
	Results    []EntrySummary `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// RandomResult carries a randomly chosen entry and reply.
type RandomResult struct {
	Message    string `json:"message"`
	Reply      string `json:"reply"`
	Category   string `json:"category,omitempty"`
	Type       string `json:"type,omitempty"`
	UsageCount int64  `json:"usage_count"`
}

// Stats is the catalog-wide statistics payload.
type Stats struct {
	TotalMessages  int            `json:"total_messages"`
	TotalReplies   int            `json:"total_replies"`
	TotalReactions int            `json:"total_reactions"`
	MostUsed       []EntrySummary `json:"most_used"`
	Categories     map[string]int `json:"categories,omitempty"`
	Types          map[string]int `json:"types,omitempty"`
	LastUpdated    *time.Time     `json:"last_updated,omitempty"`
}

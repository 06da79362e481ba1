package models

// CommandKind selects exactly one operation per request. The transport
// layer parses the request's query parameters into a Command once; the
// core never sees raw parameters.
type CommandKind int

const (
	CmdLookup CommandKind = iota
	CmdTeach
	CmdTeachReact
	CmdRemove
	CmdRemoveAt
	CmdEdit
	CmdList
	CmdListOne
	CmdSearch
	CmdRandom
	CmdStats
)

func (k CommandKind) String() string {
	switch k {
	case CmdLookup:
		return "lookup"
	case CmdTeach:
		return "teach"
	case CmdTeachReact:
		return "teach_react"
	case CmdRemove:
		return "remove"
	case CmdRemoveAt:
		return "remove_at"
	case CmdEdit:
		return "edit"
	case CmdList:
		return "list"
	case CmdListOne:
		return "list_one"
	case CmdSearch:
		return "search"
	case CmdRandom:
		return "random"
	case CmdStats:
		return "stats"
	}
	return "unknown"
}

// Tags are optional free-form classification fields attached on teach.
type Tags struct {
	Category string
	Type     string
	Language string
	Key      string
}

// Any reports whether at least one tag was supplied.
func (t Tags) Any() bool {
	return t.Category != "" || t.Type != "" || t.Language != "" || t.Key != ""
}

// Command is the typed request consumed by the chat service.
type Command struct {
	Kind CommandKind

	// Lookup
	Text string
	Mode string // "random" (default) or "sequential"

	// Teach / TeachReact / Remove / RemoveAt / Edit / ListOne
	Message   string
	Replies   []string
	Reactions []string
	Index     int // 1-based reply index for RemoveAt
	NewText   string
	Tags      Tags

	// Contributor is the caller-supplied sender id; empty means "unknown".
	Contributor string

	// Search / List
	Query  string
	Page   int
	Limit  int
	Sort   string // "newest" | "popular" | default per command
	Filter string // "mostUsed" | "recent"
}

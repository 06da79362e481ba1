package api

import (
	"net/url"
	"strconv"
	"strings"

	"parrotdb/pkg/models"
	"parrotdb/pkg/normalize"
)

// ParseCommand maps a chat request's query parameters onto a single
// Command. Parameter precedence when several verbs are present:
// teach beats remove beats edit beats list beats search beats random
// beats stats beats plain lookup text.
func ParseCommand(q url.Values) models.Command {
	cmd := models.Command{
		Text:        strings.TrimSpace(q.Get("text")),
		Mode:        strings.ToLower(strings.TrimSpace(q.Get("mode"))),
		Contributor: strings.TrimSpace(q.Get("senderID")),
		Tags: models.Tags{
			Category: strings.TrimSpace(q.Get("category")),
			Type:     strings.TrimSpace(q.Get("type")),
			Language: strings.TrimSpace(q.Get("language")),
			Key:      strings.TrimSpace(q.Get("key")),
		},
		Page:   atoiDefault(q.Get("page"), 0),
		Limit:  atoiDefault(q.Get("limit"), 0),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Filter: strings.TrimSpace(q.Get("filter")),
	}

	teach := strings.TrimSpace(q.Get("teach"))
	reply := q.Get("reply")
	react := q.Get("react")
	remove := strings.TrimSpace(q.Get("remove"))
	edit := strings.TrimSpace(q.Get("edit"))
	replace := strings.TrimSpace(q.Get("replace"))
	list := strings.TrimSpace(q.Get("list"))
	search := strings.TrimSpace(q.Get("search"))
	index := strings.TrimSpace(q.Get("index"))

	switch {
	case teach != "" && react != "" && strings.TrimSpace(reply) == "":
		cmd.Kind = models.CmdTeachReact
		cmd.Message = teach
		cmd.Reactions = normalize.SplitList(react)
	case teach != "":
		cmd.Kind = models.CmdTeach
		cmd.Message = teach
		cmd.Replies = normalize.SplitList(reply)
		cmd.Reactions = normalize.SplitList(react)
	case remove != "" && index != "":
		cmd.Kind = models.CmdRemoveAt
		cmd.Message = remove
		cmd.Index = atoiDefault(index, 0)
	case remove != "":
		cmd.Kind = models.CmdRemove
		cmd.Message = remove
	case edit != "":
		// a missing replace surfaces as a validation error downstream
		cmd.Kind = models.CmdEdit
		cmd.Message = edit
		cmd.NewText = replace
	case strings.EqualFold(list, "all"):
		cmd.Kind = models.CmdList
	case list != "":
		cmd.Kind = models.CmdListOne
		cmd.Message = list
	case search != "":
		cmd.Kind = models.CmdSearch
		cmd.Query = search
	case isTrue(q.Get("random")):
		cmd.Kind = models.CmdRandom
	case isTrue(q.Get("stats")):
		cmd.Kind = models.CmdStats
	default:
		cmd.Kind = models.CmdLookup
	}
	return cmd
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func atoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Package normalize produces the canonical catalog key for a raw message
// and validates reply text. All other components operate on normalized
// strings only.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"parrotdb/pkg/cerr"
)

const (
	// MaxKeyLen bounds a normalized message key, in runes.
	MaxKeyLen = 500
	// MaxReplyLen bounds one reply string after trimming, in runes.
	MaxReplyLen = 500
	// maxRawLen hard-caps any sanitized input, in runes, before further
	// checks.
	maxRawLen = 1000
)

// unsafe substrings rejected outright; a leading '$' is also rejected
// because it looks like a store operator.
var unsafeTokens = []string{"<script", "javascript:"}

// Unsafe reports whether raw contains a disallowed substring.
func Unsafe(raw string) bool {
	low := strings.ToLower(raw)
	for _, tok := range unsafeTokens {
		if strings.Contains(low, tok) {
			return true
		}
	}
	return strings.HasPrefix(strings.TrimSpace(raw), "$")
}

// Sanitize strips angle brackets, truncates oversized input and trims
// surrounding whitespace. It never fails; use Key or Reply for validation.
func Sanitize(raw string) string {
	s := strings.NewReplacer("<", "", ">", "").Replace(raw)
	return strings.TrimSpace(truncateRunes(s, maxRawLen))
}

// truncateRunes caps s at n runes. Lengths are counted in runes
// everywhere so multibyte scripts get the same budget as ASCII, and
// truncation never splits a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Key returns the canonical message key: rejected if unsafe, then
// sanitized, NFKC-normalized, lowercased and trimmed. Empty or oversized
// results fail with a validation error.
func Key(raw string) (string, error) {
	if Unsafe(raw) {
		return "", cerr.New(cerr.Validation, "message contains disallowed content")
	}
	s := strings.ToLower(norm.NFKC.String(Sanitize(raw)))
	s = strings.TrimSpace(s)
	if s == "" {
		return "", cerr.New(cerr.Validation, "message is empty after normalization")
	}
	if utf8.RuneCountInString(s) > MaxKeyLen {
		return "", cerr.New(cerr.Validation, "message exceeds %d characters", MaxKeyLen)
	}
	return s, nil
}

// Reply validates and trims one reply string. Unlike Key it preserves
// case: replies are shown back to users.
func Reply(raw string) (string, error) {
	if Unsafe(raw) {
		return "", cerr.New(cerr.Validation, "reply contains disallowed content")
	}
	s := norm.NFKC.String(Sanitize(raw))
	if s == "" {
		return "", cerr.New(cerr.Validation, "reply is empty after normalization")
	}
	if utf8.RuneCountInString(s) > MaxReplyLen {
		return "", cerr.New(cerr.Validation, "reply exceeds %d characters", MaxReplyLen)
	}
	return s, nil
}

// SplitList splits a comma-separated parameter into cleaned parts,
// dropping empties. It does not validate lengths; callers do.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Tokens splits a normalized query on whitespace and keeps tokens longer
// than two characters, preserving order. Used by the keyword fallback.
func Tokens(q string) []string {
	fields := strings.Fields(q)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

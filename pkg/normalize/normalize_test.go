package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"parrotdb/pkg/cerr"
)

// TestKeyCanonicalizes verifies case folding, trimming and Unicode
// compatibility normalization so equivalent inputs land on one key.
func TestKeyCanonicalizes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{"  HELLO  ", "hello"},
		{"ｈｅｌｌｏ", "hello"}, // fullwidth forms fold under NFKC
		{"কেমন আছো", "কেমন আছো"},
	}
	for _, c := range cases {
		got, err := Key(c.in)
		if err != nil {
			t.Fatalf("Key(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Key(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestKeyRejectsUnsafe(t *testing.T) {
	for _, in := range []string{"<script>alert(1)</script>", "javascript:void(0)", "$where", "  $gt"} {
		if _, err := Key(in); !cerr.Is(err, cerr.Validation) {
			t.Fatalf("Key(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestKeyRejectsEmptyAndOversized(t *testing.T) {
	if _, err := Key("   "); !cerr.Is(err, cerr.Validation) {
		t.Fatalf("empty: expected validation error, got %v", err)
	}
	if _, err := Key(strings.Repeat("a", MaxKeyLen+1)); !cerr.Is(err, cerr.Validation) {
		t.Fatalf("oversized: expected validation error, got %v", err)
	}
}

// TestKeyLengthCountsRunes verifies the key budget counts characters, not
// bytes: a 400-rune Bengali key is over 1000 bytes but well within bounds.
func TestKeyLengthCountsRunes(t *testing.T) {
	in := strings.Repeat("আ", 400)
	got, err := Key(in)
	if err != nil {
		t.Fatalf("Key(400 runes): %v", err)
	}
	if got != in {
		t.Fatalf("multibyte key mangled")
	}
	if _, err := Key(strings.Repeat("আ", MaxKeyLen+1)); !cerr.Is(err, cerr.Validation) {
		t.Fatalf("oversized multibyte: expected validation error, got %v", err)
	}
}

// TestReplyPreservesCase verifies replies keep their casing; only keys
// are lowercased.
func TestReplyPreservesCase(t *testing.T) {
	got, err := Reply("  Hello There  ")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != "Hello There" {
		t.Fatalf("Reply = %q, want %q", got, "Hello There")
	}
}

func TestSanitizeStripsAndTruncates(t *testing.T) {
	if got := Sanitize("<b>hi</b>"); got != "bhi/b" {
		t.Fatalf("Sanitize stripped brackets wrong: %q", got)
	}
	long := strings.Repeat("x", 2000)
	if got := Sanitize(long); len(got) != 1000 {
		t.Fatalf("Sanitize did not truncate: len=%d", len(got))
	}
	// truncation lands on a rune boundary, never mid-rune
	got := Sanitize(strings.Repeat("আ", 2000))
	if !utf8.ValidString(got) {
		t.Fatalf("Sanitize split a rune")
	}
	if n := utf8.RuneCountInString(got); n != 1000 {
		t.Fatalf("Sanitize rune count = %d, want 1000", n)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("a, b,,  c ,")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestTokens verifies short tokens are dropped by rune count, not byte
// count, so multibyte scripts are not over-filtered.
func TestTokens(t *testing.T) {
	got := Tokens("is the cat ok")
	if len(got) != 2 || got[0] != "the" || got[1] != "cat" {
		t.Fatalf("Tokens = %v, want [the cat]", got)
	}
	// two Bengali runes but many bytes: still too short
	if got := Tokens("আম"); len(got) != 0 {
		t.Fatalf("Tokens(short multibyte) = %v, want empty", got)
	}
	if got := Tokens("আমার"); len(got) != 1 {
		t.Fatalf("Tokens(long multibyte) = %v, want 1 token", got)
	}
}

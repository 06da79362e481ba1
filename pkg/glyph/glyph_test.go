package glyph

import "testing"

func TestTransformLatin(t *testing.T) {
	if got := Transform("Hello"); got != "ʜᴇʟʟᴏ" {
		t.Fatalf("Transform(Hello) = %q", got)
	}
	// upper and lower case fold to the same glyphs
	if Transform("abc") != Transform("ABC") {
		t.Fatalf("case variants should transform identically")
	}
}

// TestTransformPassthrough verifies digits, punctuation, emoji and
// non-Latin scripts survive untouched.
func TestTransformPassthrough(t *testing.T) {
	for _, s := range []string{"123!?", "😊", "আমি বুঝতে পারিনি"} {
		if got := Transform(s); got != s {
			t.Fatalf("Transform(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestTransformMixed(t *testing.T) {
	if got := Transform("Go 1.24!"); got != "ɢᴏ 1.24!" {
		t.Fatalf("Transform mixed = %q", got)
	}
}

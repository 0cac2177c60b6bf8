package slug

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Authentication Bug", "authentication-bug"},
		{"Version Bump Checklist (apps/web v2.1)", "version-bump-checklist-appsweb-v2-1"},
		{"Version Bump Checklist for Multi-File Projects", "version-bump-checklist-for-multi-file-projects"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"dots.become.hyphens", "dots-become-hyphens"},
		{"Mixed---runs   of.separators", "mixed-runs-of-separators"},
		{"under_scores_kept", "under_scores_kept"},
		{"!!!", ""},
		{"", ""},
		{"Ünïcödé Stripped", "ncd-stripped"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	titles := []string{
		"Authentication Bug",
		"Version Bump Checklist (apps/web v2.1)",
		"database.connection.pool",
		"already-normal-slug",
	}
	for _, title := range titles {
		once := Normalize(title)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", title, once, twice)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ab-", 30) // 90 chars
	got := Truncate(long)
	if len(got) > MaxLen {
		t.Errorf("len = %d, want <= %d", len(got), MaxLen)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug ends with hyphen: %q", got)
	}
	if short := Truncate("short"); short != "short" {
		t.Errorf("Truncate(short) = %q", short)
	}
}

func TestTruncate_CutExposesHyphen(t *testing.T) {
	// Build a slug whose 50th character is a hyphen.
	s := strings.Repeat("a", 49) + "-tail"
	got := Truncate(s)
	if got != strings.Repeat("a", 49) {
		t.Errorf("Truncate = %q", got)
	}
}

func TestTokenize_DropsStopwords(t *testing.T) {
	tokens := Tokenize("how-to-use-the-connection-pool")
	want := []string{"connection", "pool"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for _, w := range want {
		if _, ok := tokens[w]; !ok {
			t.Errorf("missing token %q in %v", w, tokens)
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
	if got := Tokenize("the-of-and"); len(got) != 0 {
		t.Errorf("all-stopword slug tokenized to %v, want empty", got)
	}
}

func TestJaccard(t *testing.T) {
	a := TokenizeTitle("Database Connection Timeout")
	b := TokenizeTitle("Database Connection Pool")
	got := Jaccard(a, b)
	want := 2.0 / 4.0
	if got != want {
		t.Errorf("Jaccard = %v, want %v", got, want)
	}
}

func TestJaccard_Symmetric(t *testing.T) {
	a := TokenizeTitle("retry backoff strategy")
	b := TokenizeTitle("exponential backoff retry")
	if Jaccard(a, b) != Jaccard(b, a) {
		t.Error("Jaccard is not symmetric")
	}
}

func TestJaccard_BothEmpty(t *testing.T) {
	if got := Jaccard(nil, nil); got != 0 {
		t.Errorf("Jaccard(∅,∅) = %v, want 0", got)
	}
}

func TestJaccard_Identical(t *testing.T) {
	a := TokenizeTitle("authentication bug")
	if got := Jaccard(a, a); got != 1.0 {
		t.Errorf("Jaccard(a,a) = %v, want 1", got)
	}
}

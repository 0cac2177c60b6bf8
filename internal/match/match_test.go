package match

import (
	"math"
	"math/rand"
	"testing"

	"github.com/starford/munin/internal/models"
)

func cand(path, slug string, aliases ...string) models.Candidate {
	return models.Candidate{
		Path:     path,
		Category: models.CategoryErrors,
		Slug:     slug,
		Aliases:  aliases,
	}
}

func TestFind_ExactSlug(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/authentication-bug.md", "authentication-bug"),
		cand("errors/timeout.md", "timeout"),
	}
	got := Find(candidates, "Authentication Bug", 0.6)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Path != "errors/authentication-bug.md" || got.Score != 1.0 {
		t.Errorf("match = %+v", got)
	}
}

func TestFind_ExactAfterNormalization(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/version-bump-checklist-for-multi-file-projects.md",
			"version-bump-checklist-for-multi-file-projects"),
	}
	got := Find(candidates, "Version Bump Checklist for Multi-File Projects", 0.6)
	if got == nil || got.Score != 1.0 {
		t.Fatalf("match = %+v, want exact", got)
	}
}

func TestFind_JaccardThreshold(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/database-connection-timeout.md", "database-connection-timeout"),
		cand("errors/unrelated.md", "unrelated-topic-entirely"),
	}
	got := Find(candidates, "database connection timeout handling", 0.6)
	if got == nil {
		t.Fatal("expected a tier-2 match")
	}
	if got.Path != "errors/database-connection-timeout.md" {
		t.Errorf("path = %q", got.Path)
	}
	// tokens {database connection timeout handling} vs {database connection timeout}
	if want := 3.0 / 4.0; got.Score != want {
		t.Errorf("score = %v, want %v", got.Score, want)
	}
}

func TestFind_GrayZoneAliasRescue(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/database-connection-pool.md", "database-connection-pool",
			"database connection timeout handling"),
	}
	got := Find(candidates, "Database Connection Timeout Handling", 0.6)
	if got == nil {
		t.Fatal("expected an alias-assisted match")
	}
	if got.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 from alias overlap", got.Score)
	}
}

func TestFind_BelowGrayZoneNoAliasLookup(t *testing.T) {
	// Tier-2 score 1/5 = 0.2, below the gray zone: the perfect alias
	// must not be consulted.
	candidates := []models.Candidate{
		cand("errors/database-tuning.md", "database-tuning-guide-advanced",
			"database connection timeout handling"),
	}
	if got := Find(candidates, "Database Connection Timeout Handling", 0.6); got != nil {
		t.Errorf("match = %+v, want nil", got)
	}
}

func TestFind_SingleTokenTierOneOnly(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/authentication.md", "authentication"),
	}
	got := Find(candidates, "authentication", 0.99)
	if got == nil || got.Score != 1.0 {
		t.Fatalf("match = %+v, want exact regardless of threshold", got)
	}

	// One significant token and no exact slug: never matches.
	candidates = []models.Candidate{
		cand("errors/authentication-bug.md", "authentication-bug"),
	}
	if got := Find(candidates, "authentication", 0.0); got != nil {
		t.Errorf("match = %+v, want nil for single-token non-exact", got)
	}
}

func TestFind_EmptyTitle(t *testing.T) {
	candidates := []models.Candidate{cand("errors/a.md", "a")}
	if got := Find(candidates, "!!!", 0.6); got != nil {
		t.Errorf("match = %+v, want nil", got)
	}
}

func TestFind_ThresholdClamped(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/retry-backoff.md", "retry-backoff-strategy"),
	}
	// Score is 3/4 = 0.75. Above 1 clamps to 1, so no match.
	if got := Find(candidates, "retry backoff strategy tuning", 2.0); got != nil {
		t.Errorf("threshold 2.0 should clamp to 1, got %+v", got)
	}
	// Below 0 clamps to 0, so any positive overlap matches.
	if got := Find(candidates, "retry backoff strategy tuning", -1.0); got == nil {
		t.Error("threshold -1 should clamp to 0 and match")
	}
	// NaN falls back to the default.
	if got := Find(candidates, "retry backoff strategy tuning", math.NaN()); got == nil {
		t.Error("NaN threshold should use the default and match at 0.75")
	}
}

func TestFind_AlphabeticalTieBreak(t *testing.T) {
	candidates := []models.Candidate{
		cand("errors/z-retry-backoff.md", "retry-backoff-two"),
		cand("errors/a-retry-backoff.md", "retry-backoff-one"),
	}
	got := Find(candidates, "retry backoff", 0.6)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Path != "errors/a-retry-backoff.md" {
		t.Errorf("tie broke to %q, want alphabetical first", got.Path)
	}
}

func TestFind_DeterministicUnderPermutation(t *testing.T) {
	base := []models.Candidate{
		cand("errors/a.md", "database-connection-pool"),
		cand("errors/b.md", "database-connection-retry"),
		cand("errors/c.md", "database-pool-sizing"),
		cand("errors/d.md", "connection-timeout-tuning"),
	}
	want := Find(base, "database connection pool tuning", 0.5)
	if want == nil {
		t.Fatal("expected a baseline match")
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Candidate, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Find(shuffled, "database connection pool tuning", 0.5)
		if got == nil || got.Path != want.Path || got.Score != want.Score {
			t.Fatalf("permutation %d: match = %+v, want %+v", i, got, want)
		}
	}
}

func TestFind_NoCandidates(t *testing.T) {
	if got := Find(nil, "anything at all", 0.6); got != nil {
		t.Errorf("match = %+v, want nil", got)
	}
}

// Package match implements the tiered topic matcher: exact slug match,
// Jaccard threshold match, and alias-assisted gray-zone match, in that
// order, short-circuiting on the first success. Results are
// deterministic for a fixed candidate set regardless of input order.
package match

import (
	"math"
	"sort"

	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/slug"
	"github.com/starford/munin/internal/vault"
)

// DefaultThreshold is used when the caller passes a NaN threshold.
// Empirically chosen, tunable via configuration.
const DefaultThreshold = 0.6

// Gray-zone band: scores too low for a confident match but too high to
// dismiss without consulting the candidate's aliases.
const (
	GrayZoneLow  = 0.30
	GrayZoneHigh = 0.59
)

// Find scores title against candidates and returns the best confident
// match, or nil when no tier succeeds. threshold is clamped to [0,1];
// NaN falls back to DefaultThreshold.
func Find(candidates []models.Candidate, title string, threshold float64) *models.MatchCandidate {
	threshold = clamp(threshold)

	normalized := slug.Normalize(title)
	if normalized == "" {
		return nil
	}
	target := slug.Truncate(normalized)
	tokens := slug.Tokenize(normalized)

	// Sorted copy: tie-breaks and iteration order must not depend on
	// how the caller assembled the candidate list.
	sorted := make([]models.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	// Tier 1: exact slug equality.
	for _, c := range sorted {
		if c.Slug == target {
			return &models.MatchCandidate{Path: c.Path, Category: c.Category, Score: 1.0}
		}
	}

	// Fewer than two significant tokens means overlap scoring would
	// match far too eagerly; exact match is the only safe strategy.
	if len(tokens) < 2 {
		return nil
	}

	// Tier 2: Jaccard overlap against candidate slugs.
	scored := make([]scoredCandidate, len(sorted))
	best := -1
	for i, c := range sorted {
		score := slug.Jaccard(tokens, slug.Tokenize(c.Slug))
		scored[i] = scoredCandidate{Candidate: c, score: score}
		if best < 0 || score > scored[best].score {
			best = i
		}
	}
	if best >= 0 && scored[best].score >= threshold {
		c := scored[best]
		return &models.MatchCandidate{Path: c.Path, Category: c.Category, Score: c.score}
	}

	// Tier 3: gray-zone candidates re-scored through their aliases.
	// A note's canonical title may have drifted to a generic form while
	// an alias recorded from a prior merge is still specific enough to
	// overlap strongly with the incoming title.
	gray := grayZone(scored)
	for _, c := range gray {
		aliasScore := c.score
		for _, alias := range c.Aliases {
			if s := slug.Jaccard(tokens, slug.TokenizeTitle(alias)); s > aliasScore {
				aliasScore = s
			}
		}
		if aliasScore >= threshold {
			return &models.MatchCandidate{Path: c.Path, Category: c.Category, Score: aliasScore}
		}
	}

	return nil
}

type scoredCandidate struct {
	models.Candidate
	score float64
}

// grayZone filters candidates into the [GrayZoneLow, GrayZoneHigh] band
// and orders them by descending tier-2 score, ascending path on ties.
func grayZone(scored []scoredCandidate) []scoredCandidate {
	var out []scoredCandidate
	for _, c := range scored {
		if c.score >= GrayZoneLow && c.score <= GrayZoneHigh {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func clamp(threshold float64) float64 {
	switch {
	case math.IsNaN(threshold):
		return DefaultThreshold
	case threshold < 0:
		return 0
	case threshold > 1:
		return 1
	}
	return threshold
}

// Matcher binds the pure matching algorithm to a vault scanner.
type Matcher struct {
	scan *vault.Scanner
}

// New creates a Matcher over the given scanner.
func New(scan *vault.Scanner) *Matcher {
	return &Matcher{scan: scan}
}

// FindInCategory matches title against the candidates of one category.
func (m *Matcher) FindInCategory(category models.Category, title string, threshold float64) *models.MatchCandidate {
	return Find(m.scan.ScanCategory(category), title, threshold)
}

// FindAcross matches title against every category of the vault. The
// result carries the matched category so the caller can decide whether
// a cross-category merge needs confirmation.
func (m *Matcher) FindAcross(title string, threshold float64) *models.MatchCandidate {
	return Find(m.scan.ScanAll(), title, threshold)
}

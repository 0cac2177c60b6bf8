// Package slug converts note titles into canonical filesystem identifiers
// and provides the word-overlap scoring used by the deduplication matcher.
package slug

import (
	"regexp"
	"strings"
)

// MaxLen is the filename-stem cap applied by callers that use a slug as
// a file name. Normalize itself is length-unbounded.
const MaxLen = 50

var (
	separatorRe = regexp.MustCompile(`[\s.]+`)
	invalidRe   = regexp.MustCompile(`[^a-z0-9_-]`)
	hyphenRunRe = regexp.MustCompile(`-{2,}`)
)

// Normalize converts an arbitrary title into a lowercase, hyphen-separated
// identifier containing only [a-z0-9_-]. It is idempotent: applying it to
// its own output returns the same string. An all-punctuation input
// normalizes to the empty string; rejecting that is the caller's job.
func Normalize(title string) string {
	s := strings.ToLower(title)
	s = separatorRe.ReplaceAllString(s, "-")
	s = invalidRe.ReplaceAllString(s, "")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Truncate caps a slug at MaxLen characters and strips any hyphen the cut
// may have exposed at the end.
func Truncate(s string) string {
	if len(s) > MaxLen {
		s = s[:MaxLen]
	}
	return strings.TrimRight(s, "-")
}

// stopwords are function words that carry no topical signal: articles,
// prepositions, pronouns, auxiliaries, and interrogatives.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "not": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "into": {}, "via": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "can": {}, "may": {}, "might": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"use": {}, "using": {}, "used": {},
}

// Tokenize splits a normalized slug on hyphens and drops stopwords.
// An empty or all-stopword slug yields an empty set, which downstream
// callers must treat as "cannot be compared by overlap".
func Tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Split(s, "-") {
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// TokenizeTitle normalizes then tokenizes a raw title.
func TokenizeTitle(title string) map[string]struct{} {
	return Tokenize(Normalize(title))
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0 by
// convention so that contentless titles never appear to match.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

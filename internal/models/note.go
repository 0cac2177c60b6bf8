// Package models defines the domain types for Munin.
package models

import "time"

// Category is the fixed set of knowledge folders a vault contains.
// Every note lives directly under one category directory.
type Category string

const (
	CategoryDecisions Category = "decisions"
	CategoryPatterns  Category = "patterns"
	CategoryErrors    Category = "errors"
	CategoryResearch  Category = "research"
	CategoryKnowledge Category = "knowledge"
)

// Categories returns all categories in priority order. When an AI-assisted
// merge spans categories, the target note is taken from the
// earliest-listed category.
func Categories() []Category {
	return []Category{
		CategoryDecisions,
		CategoryPatterns,
		CategoryErrors,
		CategoryResearch,
		CategoryKnowledge,
	}
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Priority returns the merge priority of a category; lower is preferred.
// Unknown categories sort last.
func (c Category) Priority() int {
	for i, known := range Categories() {
		if c == known {
			return i
		}
	}
	return len(Categories())
}

// IndexFile returns the per-category index filename that is excluded
// from candidate scanning.
func (c Category) IndexFile() string {
	return string(c) + ".md"
}

// Status is the lifecycle state of a note.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusDraft      Status = "draft"
)

// Note is a persisted unit of knowledge parsed from a vault file.
type Note struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Category   Category  `json:"category"`
	Aliases    []string  `json:"aliases,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	EntryCount int       `json:"entry_count"`
	Status     Status    `json:"status"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
	Body       string    `json:"body,omitempty"`

	// Extra holds frontmatter fields this version of Munin does not
	// recognise, preserved verbatim across rewrites.
	Extra []ExtraField `json:"-"`
}

// ExtraField is a raw frontmatter field carried through unchanged.
// Raw is the exact frontmatter text of the field including any
// continuation lines, without a trailing newline.
type ExtraField struct {
	Key string
	Raw string
}

// Candidate is the matcher's view of a stored note: enough to score it
// without holding the body in memory.
type Candidate struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Aliases  []string `json:"aliases,omitempty"`
}

// MatchCandidate is a scored pairing of an incoming title against a
// stored note. Never persisted.
type MatchCandidate struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// PendingGroup is a set of candidate indices the semantic matcher judged
// to be the same topic, with a suggested generic title. It exists only
// for the duration of a consolidation run.
type PendingGroup struct {
	Indices      []int  `json:"indices"`
	GenericTitle string `json:"generic_title"`
}

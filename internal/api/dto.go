package api

import (
	"github.com/starford/munin/internal/consolidate"
	"github.com/starford/munin/internal/models"
)

// MatchRequest is the body of POST /api/match. Threshold is a pointer
// so an explicit 0 (match anything) is distinct from absent (use the
// configured default).
type MatchRequest struct {
	Title     string   `json:"title"`
	Category  string   `json:"category,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// MatchResponse wraps a match preview; Match is null when nothing
// cleared the threshold.
type MatchResponse struct {
	Match *models.MatchCandidate `json:"match"`
}

// ConsolidateRequest is the body of POST /api/consolidate.
type ConsolidateRequest struct {
	Category string `json:"category,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// ConsolidateResponse carries the computed plan and, unless this was a
// dry run, the apply report.
type ConsolidateResponse struct {
	Plan   *consolidate.Plan   `json:"plan"`
	Report *consolidate.Report `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

package api

import (
	"context"
	"time"

	"github.com/starford/munin/internal/capture"
	"github.com/starford/munin/internal/checksum"
	"github.com/starford/munin/internal/consolidate"
	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/match"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/storage"
	"github.com/starford/munin/internal/vault"
)

// Service coordinates the capture pipeline, the matcher, the
// consolidator, and the search index for the API layer.
type Service struct {
	store        storage.Provider
	db           *index.DB
	capture      *capture.Service
	matcher      *match.Matcher
	consolidator *consolidate.Consolidator
	threshold    float64
}

// NewService creates a new API service.
func NewService(store storage.Provider, db *index.DB, cap *capture.Service,
	matcher *match.Matcher, cons *consolidate.Consolidator, threshold float64) *Service {
	return &Service{
		store:        store,
		db:           db,
		capture:      cap,
		matcher:      matcher,
		consolidator: cons,
		threshold:    threshold,
	}
}

// NoteDetail is the response payload for a single note.
type NoteDetail struct {
	Path       string          `json:"path"`
	Title      string          `json:"title"`
	Category   models.Category `json:"category"`
	Content    string          `json:"content"`
	Checksum   string          `json:"checksum"`
	Tags       []string        `json:"tags"`
	Aliases    []string        `json:"aliases"`
	EntryCount int             `json:"entry_count"`
	Status     models.Status   `json:"status"`
	Created    time.Time       `json:"created"`
	Updated    time.Time       `json:"updated"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path       string    `json:"path"`
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	Aliases    []string  `json:"aliases"`
	EntryCount int       `json:"entry_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetNote reads a note from storage and parses it.
func (s *Service) GetNote(path string) (*NoteDetail, error) {
	scan := vault.NewScanner(s.store, nil)
	n, err := scan.ReadNote(path)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:       n.Path,
		Title:      n.Title,
		Category:   n.Category,
		Content:    string(data),
		Checksum:   checksum.Sum(data),
		Tags:       nonNil(n.Tags),
		Aliases:    nonNil(n.Aliases),
		EntryCount: n.EntryCount,
		Status:     n.Status,
		Created:    n.Created,
		Updated:    n.Updated,
	}, nil
}

// ListNotes returns paginated notes with optional category and tag filters.
func (s *Service) ListNotes(limit, offset int, category, tag string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, category, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:       r.Path,
			Category:   r.Category,
			Title:      r.Title,
			Tags:       nonNil(r.Tags),
			Aliases:    nonNil(r.Aliases),
			EntryCount: r.EntryCount,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates to the index.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Capture runs the deduplicating capture pipeline.
func (s *Service) Capture(ctx context.Context, req capture.Request) (*capture.Result, error) {
	return s.capture.Capture(ctx, req)
}

// MatchPreview scores a title without mutating anything. A nil
// threshold uses the configured default; category "" searches all
// categories.
func (s *Service) MatchPreview(category models.Category, title string, threshold *float64) *models.MatchCandidate {
	th := s.threshold
	if threshold != nil {
		th = *threshold
	}
	if category == "" {
		return s.matcher.FindAcross(title, th)
	}
	return s.matcher.FindInCategory(category, title, th)
}

// ConsolidatePlan computes a consolidation plan without applying it.
func (s *Service) ConsolidatePlan(ctx context.Context, category models.Category) (*consolidate.Plan, error) {
	return s.consolidator.Plan(ctx, category)
}

// ConsolidateApply commits a previously computed plan unconditionally.
func (s *Service) ConsolidateApply(ctx context.Context, plan *consolidate.Plan) (*consolidate.Report, error) {
	return s.consolidator.Apply(ctx, plan, nil)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Package capture is the one-item entry point used by session hooks:
// given a titled piece of knowledge, it either merges it into the note
// that already covers the topic or creates a new note.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/match"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/note"
	"github.com/starford/munin/internal/slug"
)

// Action says what the pipeline did with a knowledge item.
type Action string

const (
	ActionCreated Action = "created"
	ActionMerged  Action = "merged"
	ActionSkipped Action = "skipped"
)

// Request is one knowledge item arriving from a session hook.
type Request struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category models.Category `json:"category"`
	Tags     []string        `json:"tags,omitempty"`
}

// Result reports the pipeline's decision.
type Result struct {
	Action      Action  `json:"action"`
	Path        string  `json:"path,omitempty"`
	MatchedPath string  `json:"matched_path,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Service runs the deterministic capture pipeline. The semantic matcher
// is deliberately absent here: hooks are non-interactive, so an
// inconclusive deterministic result degrades to creating a new note.
type Service struct {
	matcher   *match.Matcher
	mutator   *note.Mutator
	enabled   bool
	threshold float64
	logger    *slog.Logger
}

// NewService creates the capture pipeline. enabled toggles
// deduplication entirely; threshold is the similarity cutoff.
func NewService(matcher *match.Matcher, mutator *note.Mutator, enabled bool, threshold float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		matcher:   matcher,
		mutator:   mutator,
		enabled:   enabled,
		threshold: threshold,
		logger:    logger,
	}
}

// Capture validates the request, matches it against the category's
// notes, and appends or creates accordingly. Titles that cannot be
// normalized are reported as a skipped result, not an error, so
// automated pipelines never crash on bad input.
func (s *Service) Capture(_ context.Context, req Request) (*Result, error) {
	title := strings.TrimSpace(req.Title)
	if slug.Normalize(title) == "" {
		return &Result{Action: ActionSkipped, Reason: apperr.ErrEmptyTitle.Error()}, nil
	}
	if strings.TrimSpace(req.Content) == "" {
		return &Result{Action: ActionSkipped, Reason: "content is empty"}, nil
	}
	if !models.ValidCategory(req.Category) {
		return nil, fmt.Errorf("capture: unknown category %q", req.Category)
	}

	if s.enabled {
		if m := s.matcher.FindInCategory(req.Category, title, s.threshold); m != nil {
			return s.merge(m, title, req)
		}
	}

	path, err := s.mutator.Create(title, req.Content, req.Category, req.Tags)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	s.logger.Info("capture: created note",
		slog.String("path", path), slog.String("title", title))
	return &Result{Action: ActionCreated, Path: path}, nil
}

func (s *Service) merge(m *models.MatchCandidate, title string, req Request) (*Result, error) {
	if err := s.mutator.Append(m.Path, req.Content, req.Tags); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	// Keep the incoming title findable for future gray-zone matching.
	// A full ledger is not a failed capture.
	if err := s.mutator.AddAlias(m.Path, title); err != nil && !errors.Is(err, apperr.ErrAliasLimit) {
		s.logger.Warn("capture: alias not recorded",
			slog.String("path", m.Path), slog.String("error", err.Error()))
	}
	s.logger.Info("capture: merged into existing note",
		slog.String("path", m.Path),
		slog.String("title", title),
		slog.Float64("score", m.Score))
	return &Result{Action: ActionMerged, Path: m.Path, MatchedPath: m.Path, Score: m.Score}, nil
}

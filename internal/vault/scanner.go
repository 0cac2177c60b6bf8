// Package vault knows the on-disk layout of a knowledge vault: one
// directory per category, a {category}.md index file per directory, and
// a .archive subdirectory for absorbed notes. It produces the candidate
// lists the matcher scores.
package vault

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/parser"
	"github.com/starford/munin/internal/storage"
)

// ArchiveDir is the per-category directory absorbed notes are moved to.
const ArchiveDir = ".archive"

// Scanner lists match candidates from a storage provider.
type Scanner struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewScanner creates a Scanner over the given provider.
func NewScanner(store storage.Provider, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, logger: logger}
}

// ScanCategory returns the candidates in one category, sorted by path.
// Index files and anything under .archive are excluded. Storage errors
// degrade to zero candidates so that matching over the remaining
// categories can continue.
func (s *Scanner) ScanCategory(category models.Category) []models.Candidate {
	infos, err := s.store.List(string(category))
	if err != nil {
		s.logger.Debug("scan: list failed, treating as empty",
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
		return nil
	}

	var out []models.Candidate
	for _, info := range infos {
		if excluded(category, info.Path) {
			continue
		}
		cand, ok := s.readCandidate(category, info.Path)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ScanAll returns candidates across every category, sorted by path.
func (s *Scanner) ScanAll() []models.Candidate {
	var out []models.Candidate
	for _, c := range models.Categories() {
		out = append(out, s.ScanCategory(c)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ReadNote reads and parses a full note, inferring the category from the
// first path segment.
func (s *Scanner) ReadNote(notePath string) (*models.Note, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		return nil, err
	}
	return parser.Parse(notePath, CategoryOf(notePath), data), nil
}

// CategoryOf returns the category a vault path belongs to, or the empty
// category for paths outside the known layout.
func CategoryOf(notePath string) models.Category {
	seg, _, _ := strings.Cut(path.Clean(notePath), "/")
	c := models.Category(seg)
	if models.ValidCategory(c) {
		return c
	}
	return ""
}

// ArchivePath returns the .archive location for a note path.
func ArchivePath(notePath string) string {
	dir, file := path.Split(path.Clean(notePath))
	return path.Join(dir, ArchiveDir, file)
}

func excluded(category models.Category, p string) bool {
	if path.Base(p) == category.IndexFile() {
		return true
	}
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// readCandidate builds the matcher's view of one note. The slug comes
// from the filename stem; aliases come from frontmatter.
func (s *Scanner) readCandidate(category models.Category, p string) (models.Candidate, bool) {
	data, err := s.store.Read(p)
	if err != nil {
		s.logger.Debug("scan: read failed, skipping candidate",
			slog.String("path", p), slog.String("error", err.Error()))
		return models.Candidate{}, false
	}
	n := parser.Parse(p, category, data)
	return models.Candidate{
		Path:     p,
		Category: category,
		Slug:     strings.TrimSuffix(path.Base(p), ".md"),
		Title:    n.Title,
		Aliases:  n.Aliases,
	}, true
}

// Package note performs all note file mutations: creation,
// append-with-frontmatter-merge, alias recording, canonical rename, and
// archival. It is the sole writer of note state; every other component
// only reads.
package note

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/parser"
	"github.com/starford/munin/internal/slug"
	"github.com/starford/munin/internal/storage"
	"github.com/starford/munin/internal/vault"
)

// MaxAliases bounds per-note alias growth so repeated near-identical
// contributions cannot bloat the frontmatter without limit.
const MaxAliases = 10

// maxRenameAttempts bounds collision-suffix probing during renames.
const maxRenameAttempts = 100

// Mutator applies file-level note operations through a storage provider.
type Mutator struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewMutator creates a Mutator. logger may be nil.
func NewMutator(store storage.Provider, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{store: store, logger: logger, now: time.Now}
}

// Create writes a brand-new note for a topic no existing note matched.
// Returns the created path. A title that normalizes to nothing is a
// validation error.
func (m *Mutator) Create(title, content string, category models.Category, tags []string) (string, error) {
	stem := slug.Truncate(slug.Normalize(title))
	if stem == "" {
		return "", apperr.ErrEmptyTitle
	}

	target, err := m.freePath(path.Join(string(category), stem+".md"), "")
	if err != nil {
		return "", err
	}

	now := m.now()
	n := &models.Note{
		Path:       target,
		Title:      title,
		Category:   category,
		Tags:       dedupe(tags),
		EntryCount: 1,
		Status:     models.StatusActive,
		Created:    now,
		Updated:    now,
		Body:       section(now, content),
	}
	if err := m.store.Write(target, parser.Render(n)); err != nil {
		return "", err
	}
	return target, nil
}

// Append merges a new contribution into an existing note: the content is
// added under a timestamped section header, tags are unioned,
// entry_count is incremented by one, and updated is refreshed. Existing
// body content is never removed or reordered, and unrecognized
// frontmatter fields pass through untouched.
func (m *Mutator) Append(notePath, content string, tags []string) error {
	data, err := m.store.Read(notePath)
	if err != nil {
		return fmt.Errorf("append %s: %w", notePath, err)
	}
	n := parser.Parse(notePath, vault.CategoryOf(notePath), data)

	now := m.now()
	n.Body = strings.TrimRight(n.Body, "\n") + "\n\n" + section(now, content)
	n.Tags = dedupe(append(n.Tags, tags...))
	n.EntryCount++
	n.Updated = now

	return m.store.Write(notePath, parser.Render(n))
}

// AddAlias records a historical title on a note so future matching can
// see it. Adding an alias that already exists (case-insensitively) is a
// successful no-op; an empty alias or a full ledger is a failure.
func (m *Mutator) AddAlias(notePath, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return apperr.ErrEmptyTitle
	}
	data, err := m.store.Read(notePath)
	if err != nil {
		return fmt.Errorf("add alias %s: %w", notePath, err)
	}
	n := parser.Parse(notePath, vault.CategoryOf(notePath), data)

	if strings.EqualFold(n.Title, alias) {
		return nil
	}
	for _, existing := range n.Aliases {
		if strings.EqualFold(existing, alias) {
			return nil
		}
	}
	if len(n.Aliases) >= MaxAliases {
		return apperr.ErrAliasLimit
	}

	n.Aliases = append(n.Aliases, alias)
	n.Updated = m.now()
	return m.store.Write(notePath, parser.Render(n))
}

// RenameToGenericTitle canonicalizes a note under a new, usually more
// generic, title. The fully-updated note is written to the new filename
// first; only then is the original removed. If removing the original
// fails the rename still succeeds — a stale duplicate is preferable to
// data loss — and a warning is logged.
//
// An empty newTitle, or one whose slug equals the current slug, returns
// the original path unchanged. Filename collisions are resolved with an
// incrementing numeric suffix up to a bounded number of attempts.
func (m *Mutator) RenameToGenericTitle(notePath, newTitle string) (string, error) {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return notePath, nil
	}
	newStem := slug.Truncate(slug.Normalize(newTitle))
	if newStem == "" {
		return notePath, nil
	}

	data, err := m.store.Read(notePath)
	if err != nil {
		return "", fmt.Errorf("rename %s: %w", notePath, err)
	}
	n := parser.Parse(notePath, vault.CategoryOf(notePath), data)

	currentStem := strings.TrimSuffix(path.Base(notePath), ".md")
	if newStem == currentStem {
		return notePath, nil
	}

	target, err := m.freePath(path.Join(path.Dir(notePath), newStem+".md"), notePath)
	if err != nil {
		return "", err
	}

	// The old title stays findable as an alias, space permitting.
	if n.Title != "" && len(n.Aliases) < MaxAliases {
		dup := false
		for _, a := range n.Aliases {
			if strings.EqualFold(a, n.Title) {
				dup = true
				break
			}
		}
		if !dup {
			n.Aliases = append(n.Aliases, n.Title)
		}
	}

	n.Title = newTitle
	n.Path = target
	n.Updated = m.now()

	if err := m.store.Write(target, parser.Render(n)); err != nil {
		return "", fmt.Errorf("rename %s: %w", notePath, err)
	}
	if err := m.store.Delete(notePath); err != nil {
		m.logger.Warn("rename: old file left behind",
			slog.String("old", notePath),
			slog.String("new", target),
			slog.String("error", err.Error()))
	}
	return target, nil
}

// Archive moves an absorbed note into its category's .archive directory
// and returns the destination path. Archived notes are never scanned as
// candidates again, which is what makes a re-run of consolidation safe.
func (m *Mutator) Archive(notePath string) (string, error) {
	dest, err := m.freePath(vault.ArchivePath(notePath), "")
	if err != nil {
		return "", err
	}
	if err := m.store.Move(notePath, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", notePath, err)
	}
	return dest, nil
}

// freePath returns wanted if unoccupied, otherwise the first suffixed
// variant (-2, -3, ...) that is free. ignore, when non-empty, names a
// path that does not count as occupied (the note being renamed).
// Exhausting the attempt bound is a hard failure, never an overwrite.
func (m *Mutator) freePath(wanted, ignore string) (string, error) {
	if wanted == ignore || !m.store.Exists(wanted) {
		return wanted, nil
	}
	stem := strings.TrimSuffix(wanted, ".md")
	for i := 2; i <= maxRenameAttempts; i++ {
		p := fmt.Sprintf("%s-%d.md", stem, i)
		if p == ignore || !m.store.Exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", wanted, apperr.ErrCollisionExhausted)
}

// section formats a merged contribution under a timestamped header.
func section(ts time.Time, content string) string {
	return fmt.Sprintf("## %s\n\n%s\n", ts.UTC().Format(time.RFC3339), strings.TrimSpace(content))
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Package consolidate implements the batch workflow that folds
// near-duplicate notes into one: a deterministic grouping pass over the
// tiered matcher, an optional semantic grouping pass for the leftovers,
// and a mutation phase that appends, records aliases, archives the
// absorbed notes, and optionally canonicalizes the survivor's title.
//
// Planning never mutates, so a dry run is simply a plan that is not
// applied. Merges are not transactional across notes: an interrupted
// run leaves completed merges in place, and re-running is safe because
// absorbed notes are archived out of the candidate set.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/munin/internal/match"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/note"
	"github.com/starford/munin/internal/vault"
)

// Grouper is the semantic-matching surface consolidation needs. It may
// be absent, leaving only the deterministic pass.
type Grouper interface {
	GroupAll(ctx context.Context, candidates []models.Candidate) []models.PendingGroup
}

// Source is a note a planned group will absorb.
type Source struct {
	Path  string  `json:"path"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Group is one planned merge: sources are appended into the target and
// archived; a non-empty GenericTitle renames the target afterwards.
type Group struct {
	TargetPath   string          `json:"target_path"`
	TargetTitle  string          `json:"target_title"`
	Category     models.Category `json:"category"`
	GenericTitle string          `json:"generic_title,omitempty"`
	Semantic     bool            `json:"semantic,omitempty"`
	Sources      []Source        `json:"sources"`
}

// Plan is the full set of merges a run would perform.
type Plan struct {
	Category models.Category `json:"category,omitempty"`
	Groups   []Group         `json:"groups"`
}

// Report summarises an applied plan.
type Report struct {
	Merged   int               `json:"merged"`
	Skipped  int               `json:"skipped"`
	Archived []string          `json:"archived,omitempty"`
	Renamed  map[string]string `json:"renamed,omitempty"`
}

// Consolidator plans and applies merge runs.
type Consolidator struct {
	scan      *vault.Scanner
	mutator   *note.Mutator
	grouper   Grouper
	threshold float64
	logger    *slog.Logger
}

// New creates a Consolidator. grouper may be nil.
func New(scan *vault.Scanner, mutator *note.Mutator, grouper Grouper, threshold float64, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{
		scan:      scan,
		mutator:   mutator,
		grouper:   grouper,
		threshold: threshold,
		logger:    logger,
	}
}

// Plan computes the merges for one category, or for the whole vault when
// category is empty. It performs no mutation.
func (c *Consolidator) Plan(ctx context.Context, category models.Category) (*Plan, error) {
	var candidates []models.Candidate
	if category == "" {
		candidates = c.scan.ScanAll()
	} else {
		if !models.ValidCategory(category) {
			return nil, fmt.Errorf("consolidate: unknown category %q", category)
		}
		candidates = c.scan.ScanCategory(category)
	}

	groups, leftovers := c.deterministicGroups(candidates)

	if c.grouper != nil && len(leftovers) > 1 {
		groups = append(groups, c.semanticGroups(ctx, leftovers)...)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].TargetPath < groups[j].TargetPath })
	return &Plan{Category: category, Groups: groups}, nil
}

// deterministicGroups folds candidates whose titles the tiered matcher
// already considers the same topic. Candidates arrive path-sorted; the
// first member seen becomes the group's target, so results are
// independent of scan order. Returns the groups plus the candidates
// that stayed alone.
func (c *Consolidator) deterministicGroups(candidates []models.Candidate) ([]Group, []models.Candidate) {
	type cluster struct {
		target  models.Candidate
		sources []Source
	}

	var clusters []cluster
	for _, cand := range candidates {
		title := cand.Title
		if title == "" {
			title = cand.Slug
		}

		matched := false
		for i := range clusters {
			m := match.Find([]models.Candidate{clusters[i].target}, title, c.threshold)
			if m == nil {
				continue
			}
			clusters[i].sources = append(clusters[i].sources, Source{
				Path:  cand.Path,
				Title: title,
				Score: m.Score,
			})
			matched = true
			break
		}
		if !matched {
			clusters = append(clusters, cluster{target: cand})
		}
	}

	var groups []Group
	var leftovers []models.Candidate
	for _, cl := range clusters {
		if len(cl.sources) == 0 {
			leftovers = append(leftovers, cl.target)
			continue
		}
		groups = append(groups, Group{
			TargetPath:  cl.target.Path,
			TargetTitle: cl.target.Title,
			Category:    cl.target.Category,
			Sources:     cl.sources,
		})
	}
	return groups, leftovers
}

// semanticGroups delegates the remaining singletons to the external
// matcher. The target of each returned group is picked by category
// priority, then by ascending path.
func (c *Consolidator) semanticGroups(ctx context.Context, leftovers []models.Candidate) []Group {
	var groups []Group
	for _, pg := range c.grouper.GroupAll(ctx, leftovers) {
		members := make([]models.Candidate, 0, len(pg.Indices))
		for _, i := range pg.Indices {
			if i >= 0 && i < len(leftovers) {
				members = append(members, leftovers[i])
			}
		}
		if len(members) < 2 {
			continue
		}

		target := members[0]
		for _, m := range members[1:] {
			if m.Category.Priority() < target.Category.Priority() ||
				(m.Category.Priority() == target.Category.Priority() && m.Path < target.Path) {
				target = m
			}
		}

		g := Group{
			TargetPath:   target.Path,
			TargetTitle:  target.Title,
			Category:     target.Category,
			GenericTitle: pg.GenericTitle,
			Semantic:     true,
		}
		for _, m := range members {
			if m.Path == target.Path {
				continue
			}
			title := m.Title
			if title == "" {
				title = m.Slug
			}
			g.Sources = append(g.Sources, Source{Path: m.Path, Title: title})
		}
		groups = append(groups, g)
	}
	return groups
}

// Apply commits a plan. confirm is called once per group; a nil confirm
// accepts everything. Failed groups are skipped and reported together,
// never rolled back.
func (c *Consolidator) Apply(ctx context.Context, plan *Plan, confirm func(Group) bool) (*Report, error) {
	report := &Report{Renamed: map[string]string{}}
	var errs []error

	for _, g := range plan.Groups {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if confirm != nil && !confirm(g) {
			report.Skipped++
			continue
		}
		if err := c.applyGroup(g, report); err != nil {
			c.logger.Warn("consolidate: group failed",
				slog.String("target", g.TargetPath),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		report.Merged++
	}
	return report, errors.Join(errs...)
}

func (c *Consolidator) applyGroup(g Group, report *Report) error {
	target := g.TargetPath

	for _, src := range g.Sources {
		srcNote, err := c.scan.ReadNote(src.Path)
		if err != nil {
			return fmt.Errorf("consolidate: read %s: %w", src.Path, err)
		}

		content := fmt.Sprintf("Merged from %q.\n\n%s", src.Title, srcNote.Body)
		if err := c.mutator.Append(target, content, srcNote.Tags); err != nil {
			return fmt.Errorf("consolidate: %w", err)
		}
		if err := c.mutator.AddAlias(target, src.Title); err != nil {
			c.logger.Debug("consolidate: alias not recorded",
				slog.String("target", target), slog.String("error", err.Error()))
		}

		archived, err := c.mutator.Archive(src.Path)
		if err != nil {
			return fmt.Errorf("consolidate: %w", err)
		}
		report.Archived = append(report.Archived, archived)
		c.logger.Info("consolidate: absorbed note",
			slog.String("source", src.Path),
			slog.String("target", target))
	}

	if g.GenericTitle != "" {
		renamed, err := c.mutator.RenameToGenericTitle(target, g.GenericTitle)
		if err != nil {
			return fmt.Errorf("consolidate: %w", err)
		}
		if renamed != target {
			report.Renamed[target] = renamed
		}
	}
	return nil
}

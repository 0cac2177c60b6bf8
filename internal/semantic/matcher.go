package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/munin/internal/models"
)

// batchSize caps how many candidates appear in one prompt. Batch
// boundaries only affect recall across batches, never within-batch
// correctness.
const batchSize = 50

// DefaultTimeout bounds one delegate invocation when the caller does
// not supply its own.
const DefaultTimeout = 30 * time.Second

// Matcher asks the external delegate whether an incoming title matches
// a stored note, or how a candidate set should be grouped.
type Matcher struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewMatcher creates a Matcher backed by a CLI delegate.
func NewMatcher(command, model string, timeout time.Duration, logger *slog.Logger) *Matcher {
	return NewMatcherWithRunner(&CLIRunner{Command: command, Model: model}, timeout, logger)
}

// NewMatcherWithRunner creates a Matcher with an explicit Runner.
func NewMatcherWithRunner(r Runner, timeout time.Duration, logger *slog.Logger) *Matcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{runner: r, timeout: timeout, logger: logger}
}

// MatchOne asks the delegate whether title is the same topic as one of
// the candidates. It returns nil on "no", and also on every failure:
// the delegate cannot cause a merge the deterministic tiers would not
// have allowed without its explicit, well-formed consent.
func (m *Matcher) MatchOne(ctx context.Context, title string, candidates []models.Candidate) *Match {
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		batch := candidates[start:end]

		if found := m.matchBatch(ctx, title, batch); found != nil {
			return found
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (m *Matcher) matchBatch(ctx context.Context, title string, batch []models.Candidate) *Match {
	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.runner.Run(runCtx, matchPrompt(title, batch))
	if err != nil {
		m.logger.Debug("semantic: match run failed", slog.String("error", err.Error()))
		return nil
	}
	found, err := decodeMatch(out, batch)
	if err != nil {
		m.logger.Debug("semantic: match reply rejected", slog.String("error", err.Error()))
		return nil
	}
	return found
}

// GroupAll asks the delegate to partition candidates into same-topic
// groups. Indices in the returned groups refer to the input slice.
// Failures reduce to an empty result.
func (m *Matcher) GroupAll(ctx context.Context, candidates []models.Candidate) []models.PendingGroup {
	var all []models.PendingGroup
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		batch := candidates[start:end]

		runCtx, cancel := context.WithTimeout(ctx, m.timeout)
		out, err := m.runner.Run(runCtx, groupPrompt(batch))
		cancel()
		if err != nil {
			m.logger.Debug("semantic: group run failed", slog.String("error", err.Error()))
			continue
		}
		groups, err := decodeGroups(out, len(batch))
		if err != nil {
			m.logger.Debug("semantic: group reply rejected", slog.String("error", err.Error()))
			continue
		}

		// Remap batch-local indices to positions in the full slice.
		for _, g := range groups {
			global := make([]int, len(g.Indices))
			for i, idx := range g.Indices {
				global[i] = start + idx
			}
			all = append(all, models.PendingGroup{Indices: global, GenericTitle: g.GenericTitle})
		}
		if ctx.Err() != nil {
			break
		}
	}
	return all
}

func matchPrompt(title string, candidates []models.Candidate) string {
	var b strings.Builder
	b.WriteString("You deduplicate topics in a personal knowledge base.\n")
	fmt.Fprintf(&b, "New knowledge title: %q\n\nExisting notes:\n", title)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, c.Category, candidateTitle(c))
	}
	b.WriteString(`
Is the new title the SAME TOPIC as exactly one existing note? Be
conservative: different topics must not be merged.

Reply with JSON only, no prose:
  {"match": true, "index": <number>, "confidence": "high"|"medium"|"low", "generic_title": "<optional broader title covering both>"}
or
  {"match": false}
`)
	return b.String()
}

func groupPrompt(candidates []models.Candidate) string {
	var b strings.Builder
	b.WriteString("You deduplicate topics in a personal knowledge base.\n\nNotes:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, c.Category, candidateTitle(c))
	}
	b.WriteString(`
Group notes that cover the same topic. Every group needs at least two
members and a generic title covering all of them. Notes that are alone
in their topic are omitted. Be conservative: when unsure, do not group.

Reply with JSON only, no prose:
  {"groups": [{"indices": [<numbers>], "generic_title": "<title>"}]}
`)
	return b.String()
}

func candidateTitle(c models.Candidate) string {
	if c.Title != "" {
		return c.Title
	}
	return c.Slug
}

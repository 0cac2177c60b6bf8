package semantic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/starford/munin/internal/models"
)

// Confidence is the delegate's self-reported certainty. Only the three
// listed values are accepted; anything else fails the structural guard.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func validConfidence(c Confidence) bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Match is a validated single-title decision from the delegate.
type Match struct {
	Path         string     `json:"path"`
	Category     models.Category `json:"category"`
	Confidence   Confidence `json:"confidence"`
	GenericTitle string     `json:"generic_title,omitempty"`
}

// codeFenceRe extracts the body of a ```json fenced block, since the
// delegate may wrap its reply in one.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON returns the JSON payload from raw delegate output:
// either the whole trimmed output or the contents of the first code
// fence.
func extractJSON(out []byte) []byte {
	trimmed := bytes.TrimSpace(out)
	if m := codeFenceRe.FindSubmatch(trimmed); m != nil {
		return bytes.TrimSpace(m[1])
	}
	return trimmed
}

type matchReply struct {
	Match        bool       `json:"match"`
	Index        *int       `json:"index"`
	Confidence   Confidence `json:"confidence"`
	GenericTitle string     `json:"generic_title"`
}

// decodeMatch validates a single-match reply against the candidate set.
// Every structural violation is an error; the caller translates errors
// to "no match".
func decodeMatch(out []byte, candidates []models.Candidate) (*Match, error) {
	var reply matchReply
	if err := json.Unmarshal(extractJSON(out), &reply); err != nil {
		return nil, fmt.Errorf("semantic: decode match reply: %w", err)
	}
	if !reply.Match {
		return nil, nil
	}
	if reply.Index == nil {
		return nil, fmt.Errorf("semantic: match reply missing index")
	}
	i := *reply.Index
	if i < 0 || i >= len(candidates) {
		return nil, fmt.Errorf("semantic: match index %d out of bounds (%d candidates)", i, len(candidates))
	}
	if !validConfidence(reply.Confidence) {
		return nil, fmt.Errorf("semantic: invalid confidence %q", reply.Confidence)
	}
	return &Match{
		Path:         candidates[i].Path,
		Category:     candidates[i].Category,
		Confidence:   reply.Confidence,
		GenericTitle: reply.GenericTitle,
	}, nil
}

type groupsReply struct {
	Groups []struct {
		Indices      []int  `json:"indices"`
		GenericTitle string `json:"generic_title"`
	} `json:"groups"`
}

// decodeGroups validates a grouping reply. Groups with fewer than two
// distinct in-bounds indices are structural violations, as is any index
// appearing in more than one group.
func decodeGroups(out []byte, candidateCount int) ([]models.PendingGroup, error) {
	var reply groupsReply
	if err := json.Unmarshal(extractJSON(out), &reply); err != nil {
		return nil, fmt.Errorf("semantic: decode groups reply: %w", err)
	}

	claimed := make(map[int]struct{})
	var out2 []models.PendingGroup
	for gi, g := range reply.Groups {
		seen := make(map[int]struct{}, len(g.Indices))
		var indices []int
		for _, i := range g.Indices {
			if i < 0 || i >= candidateCount {
				return nil, fmt.Errorf("semantic: group %d index %d out of bounds (%d candidates)", gi, i, candidateCount)
			}
			if _, dup := seen[i]; dup {
				continue
			}
			if _, taken := claimed[i]; taken {
				return nil, fmt.Errorf("semantic: index %d appears in multiple groups", i)
			}
			seen[i] = struct{}{}
			claimed[i] = struct{}{}
			indices = append(indices, i)
		}
		if len(indices) < 2 {
			return nil, fmt.Errorf("semantic: group %d has fewer than two members", gi)
		}
		sort.Ints(indices)
		out2 = append(out2, models.PendingGroup{Indices: indices, GenericTitle: g.GenericTitle})
	}
	return out2, nil
}

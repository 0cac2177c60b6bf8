package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/starford/munin/internal/models"
)

// fakeRunner replays canned replies, or errors, per invocation.
type fakeRunner struct {
	replies []string
	errs    []error
	prompts []string
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, prompt string) ([]byte, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return []byte(f.replies[i]), nil
	}
	return []byte(`{"match": false}`), nil
}

func candidateList(n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			Path:     fmt.Sprintf("errors/topic-%03d.md", i),
			Category: models.CategoryErrors,
			Slug:     fmt.Sprintf("topic-%03d", i),
			Title:    fmt.Sprintf("Topic %03d", i),
		}
	}
	return out
}

func TestMatchOne(t *testing.T) {
	r := &fakeRunner{replies: []string{`{"match": true, "index": 1, "confidence": "high"}`}}
	m := NewMatcherWithRunner(r, time.Second, nil)

	got := m.MatchOne(context.Background(), "Some Title", candidateList(3))
	if got == nil || got.Path != "errors/topic-001.md" {
		t.Errorf("match = %+v", got)
	}
	if r.calls != 1 {
		t.Errorf("calls = %d", r.calls)
	}
	if !strings.Contains(r.prompts[0], "0. [errors] Topic 000") {
		t.Errorf("prompt missing enumerated candidates:\n%s", r.prompts[0])
	}
}

func TestMatchOne_FailClosed(t *testing.T) {
	for name, r := range map[string]*fakeRunner{
		"runner error":  {errs: []error{errors.New("exec failed")}},
		"garbage reply": {replies: []string{"not json at all"}},
		"bad index":     {replies: []string{`{"match": true, "index": 99, "confidence": "high"}`}},
	} {
		m := NewMatcherWithRunner(r, time.Second, nil)
		if got := m.MatchOne(context.Background(), "Title", candidateList(3)); got != nil {
			t.Errorf("%s: match = %+v, want nil", name, got)
		}
	}
}

func TestMatchOne_Batches(t *testing.T) {
	// 120 candidates → 3 batches; the match sits in the third batch at
	// batch-local index 5 (global 105).
	r := &fakeRunner{replies: []string{
		`{"match": false}`,
		`{"match": false}`,
		`{"match": true, "index": 5, "confidence": "medium"}`,
	}}
	m := NewMatcherWithRunner(r, time.Second, nil)

	got := m.MatchOne(context.Background(), "Title", candidateList(120))
	if r.calls != 3 {
		t.Fatalf("calls = %d, want 3", r.calls)
	}
	if got == nil || got.Path != "errors/topic-105.md" {
		t.Errorf("match = %+v, want errors/topic-105.md", got)
	}
}

func TestMatchOne_StopsOnFirstHit(t *testing.T) {
	r := &fakeRunner{replies: []string{`{"match": true, "index": 0, "confidence": "high"}`}}
	m := NewMatcherWithRunner(r, time.Second, nil)

	if got := m.MatchOne(context.Background(), "Title", candidateList(120)); got == nil {
		t.Fatal("expected a match")
	}
	if r.calls != 1 {
		t.Errorf("calls = %d, want 1 (later batches skipped)", r.calls)
	}
}

func TestGroupAll_RemapsBatchIndices(t *testing.T) {
	r := &fakeRunner{replies: []string{
		`{"groups": [{"indices": [0, 2], "generic_title": "First Pair"}]}`,
		`{"groups": [{"indices": [1, 3], "generic_title": "Second Pair"}]}`,
	}}
	m := NewMatcherWithRunner(r, time.Second, nil)

	groups := m.GroupAll(context.Background(), candidateList(70))
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Indices[0] != 0 || groups[0].Indices[1] != 2 {
		t.Errorf("first batch indices = %v", groups[0].Indices)
	}
	// Second batch starts at 50.
	if groups[1].Indices[0] != 51 || groups[1].Indices[1] != 53 {
		t.Errorf("second batch indices = %v, want [51 53]", groups[1].Indices)
	}
}

func TestGroupAll_SkipsFailedBatches(t *testing.T) {
	r := &fakeRunner{
		errs:    []error{errors.New("timeout"), nil},
		replies: []string{"", `{"groups": [{"indices": [0, 1], "generic_title": "Pair"}]}`},
	}
	m := NewMatcherWithRunner(r, time.Second, nil)

	groups := m.GroupAll(context.Background(), candidateList(70))
	if len(groups) != 1 {
		t.Fatalf("groups = %+v, want the surviving batch only", groups)
	}
	if groups[0].Indices[0] != 50 || groups[0].Indices[1] != 51 {
		t.Errorf("indices = %v", groups[0].Indices)
	}
}

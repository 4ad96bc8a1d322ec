package verify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/oracle"
)

// scriptedEvaluator fails the named gate a fixed number of times, then
// passes everything.
type scriptedEvaluator struct {
	mu           sync.Mutex
	failGate     string
	failuresLeft int
	evaluations  int
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, content string, gate model.GateSpec) (oracle.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluations++

	if gate.Name == e.failGate && e.failuresLeft > 0 {
		e.failuresLeft--
		return oracle.Verdict{Passed: false, Justification: "missing the second half of the claim"}, nil
	}
	return oracle.Verdict{Passed: true, Justification: "ok"}, nil
}

// appendingRewriter marks each revision so drafts are distinguishable.
type appendingRewriter struct {
	calls int
}

func (r *appendingRewriter) Rewrite(ctx context.Context, content string, feedback []string) (string, error) {
	r.calls++
	return content + " [rev]", nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(ctx context.Context, content string, gate model.GateSpec) (oracle.Verdict, error) {
	return oracle.Verdict{}, &oracle.Error{Op: "evaluate", Err: errors.New("timeout")}
}

func testScript() *model.UnifiedScript {
	return &model.UnifiedScript{
		Theme: "test",
		Sections: []model.ScriptSection{
			{SectionID: "intro", Type: model.SectionIntro, Content: "welcome"},
			{SectionID: "clip_1", Type: model.SectionVideoClip, Content: "the claim", ClipID: "segment_1", StartTime: "0:10", EndTime: "0:40"},
			{SectionID: "post_1", Type: model.SectionPostClip, Content: "draft rebuttal", ClipReference: "segment_1"},
			{SectionID: "outro", Type: model.SectionOutro, Content: "bye"},
		},
	}
}

func noVerifySleep(t *testing.T) {
	t.Helper()
	orig := sleepFunc
	sleepFunc = func(time.Duration) {}
	t.Cleanup(func() { sleepFunc = orig })
}

func TestVerify_PassesOnLastRound(t *testing.T) {
	// completeness fails rounds 1-2, everything passes round 3.
	eval := &scriptedEvaluator{failGate: "completeness", failuresLeft: 2}
	rewriter := &appendingRewriter{}

	v := NewVerifier(eval, rewriter, 3, 0)
	updated, meta, err := v.Verify(context.Background(), testScript())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if meta.RebuttalsVerified != 1 {
		t.Errorf("expected 1 rebuttal verified, got %d", meta.RebuttalsVerified)
	}
	res := meta.Results[0]
	if !res.Passed {
		t.Errorf("expected section to pass, warning=%q", res.Warning)
	}
	if res.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", res.Iterations)
	}
	if res.Warning != "" {
		t.Errorf("expected no warning on pass, got %q", res.Warning)
	}
	if rewriter.calls != 2 {
		t.Errorf("expected 2 rewrites, got %d", rewriter.calls)
	}
	if want := "draft rebuttal [rev] [rev]"; updated.Sections[2].Content != want {
		t.Errorf("section content = %q, want %q", updated.Sections[2].Content, want)
	}
}

func TestVerify_ExhaustsIterations(t *testing.T) {
	eval := &scriptedEvaluator{failGate: "completeness", failuresLeft: 100}
	rewriter := &appendingRewriter{}

	v := NewVerifier(eval, rewriter, 3, 0)
	updated, meta, err := v.Verify(context.Background(), testScript())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	res := meta.Results[0]
	if res.Passed {
		t.Error("expected section to fail")
	}
	if res.Iterations != 3 {
		t.Errorf("expected exactly max_iterations (3), got %d", res.Iterations)
	}
	if res.Warning == "" {
		t.Error("expected warning on exhausted section")
	}
	if !strings.Contains(res.Warning, "completeness") {
		t.Errorf("warning should name the failing gate, got %q", res.Warning)
	}
	// Content keeps the last produced draft: two rewrites happened before
	// the final failing round.
	if want := "draft rebuttal [rev] [rev]"; res.FinalContent != want {
		t.Errorf("final content = %q, want %q", res.FinalContent, want)
	}
	if updated.Sections[2].Content != res.FinalContent {
		t.Error("updated script should carry the final draft")
	}
}

func TestVerify_CountsAllPostClips(t *testing.T) {
	script := testScript()
	script.Sections = append(script.Sections,
		model.ScriptSection{SectionID: "post_2", Type: model.SectionPostClip, Content: "another rebuttal"},
		model.ScriptSection{SectionID: "post_3", Type: model.SectionPostClip, Content: "third rebuttal"},
	)

	eval := &scriptedEvaluator{failGate: "accuracy", failuresLeft: 100}
	v := NewVerifier(eval, &appendingRewriter{}, 2, 0)
	_, meta, err := v.Verify(context.Background(), script)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	// Counted regardless of pass/fail outcome.
	if meta.RebuttalsVerified != 3 {
		t.Errorf("expected 3 rebuttals verified, got %d", meta.RebuttalsVerified)
	}
}

func TestVerify_OracleOutageSetsWarning(t *testing.T) {
	noVerifySleep(t)
	v := NewVerifier(failingEvaluator{}, &appendingRewriter{}, 3, 1)
	_, meta, err := v.Verify(context.Background(), testScript())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	res := meta.Results[0]
	if res.Passed {
		t.Error("expected failure when the oracle is down")
	}
	if res.Warning == "" {
		t.Error("expected warning when the oracle is down")
	}
	if res.Iterations > 3 {
		t.Errorf("iterations %d exceeds max", res.Iterations)
	}
}

func TestVerify_DoesNotMutateInput(t *testing.T) {
	script := testScript()
	original := script.Sections[2].Content

	eval := &scriptedEvaluator{failGate: "clarity", failuresLeft: 1}
	v := NewVerifier(eval, &appendingRewriter{}, 3, 0)
	if _, _, err := v.Verify(context.Background(), script); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if script.Sections[2].Content != original {
		t.Errorf("input script was mutated: %q", script.Sections[2].Content)
	}
}

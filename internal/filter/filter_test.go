package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/oracle"
)

// fakeEvaluator returns scripted verdicts keyed by segment title.
type fakeEvaluator struct {
	mu        sync.Mutex
	failAt    map[string]string // title -> gate name that rejects
	errBudget map[string]int    // title -> transient errors before answering
	calls     map[string]int    // "title/gate" -> evaluation count
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		failAt:    make(map[string]string),
		errBudget: make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, content string, gate model.GateSpec) (oracle.Verdict, error) {
	title := titleFromContent(content)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[title+"/"+gate.Name]++

	if f.errBudget[title] > 0 {
		f.errBudget[title]--
		return oracle.Verdict{}, &oracle.Error{Op: "evaluate", Err: errors.New("connection reset")}
	}
	if f.failAt[title] == gate.Name {
		return oracle.Verdict{Passed: false, Justification: "does not meet the bar"}, nil
	}
	return oracle.Verdict{Passed: true, Justification: "ok"}, nil
}

func (f *fakeEvaluator) callCount(title, gate string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[title+"/"+gate]
}

func titleFromContent(content string) string {
	line := strings.SplitN(content, "\n", 2)[0]
	return strings.TrimPrefix(line, "Title: ")
}

func makeCandidates(n int) []model.CandidateSegment {
	segs := make([]model.CandidateSegment, n)
	for i := range segs {
		segs[i] = model.CandidateSegment{
			ID:    fmt.Sprintf("s%d", i+1),
			Title: fmt.Sprintf("seg-%d", i+1),
		}
	}
	return segs
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := sleepFunc
	sleepFunc = func(time.Duration) {}
	t.Cleanup(func() { sleepFunc = orig })
}

func TestFilter_PartitionInvariants(t *testing.T) {
	eval := newFakeEvaluator()
	gates := DefaultGates()

	// 10 candidates: 6 pass all 5 gates, 4 fail at varying gates.
	eval.failAt["seg-2"] = gates[0].Name
	eval.failAt["seg-5"] = gates[2].Name
	eval.failAt["seg-7"] = gates[3].Name
	eval.failAt["seg-9"] = gates[4].Name

	p := NewPipeline(eval, 0, 3)
	outcome, err := p.Filter(context.Background(), makeCandidates(10), gates)
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}

	if len(outcome.Passed) != 6 {
		t.Errorf("expected 6 passed, got %d", len(outcome.Passed))
	}
	if len(outcome.Rejected) != 4 {
		t.Errorf("expected 4 rejected, got %d", len(outcome.Rejected))
	}
	if outcome.Meta.TotalSegments != 10 {
		t.Errorf("expected total_segments 10, got %d", outcome.Meta.TotalSegments)
	}

	seen := make(map[string]bool)
	for _, seg := range append(append([]model.CandidateSegment{}, outcome.Passed...), outcome.Rejected...) {
		if seen[seg.ID] {
			t.Errorf("segment %s appears in both sets", seg.ID)
		}
		seen[seg.ID] = true
	}

	for _, seg := range outcome.Passed {
		if seg.FailedAt != "" {
			t.Errorf("passed segment %s has failed_at %q", seg.ID, seg.FailedAt)
		}
		if len(seg.GateResults) != len(gates) {
			t.Errorf("passed segment %s evaluated %d gates, want %d", seg.ID, len(seg.GateResults), len(gates))
		}
	}
	for _, seg := range outcome.Rejected {
		if seg.FailedAt == "" {
			t.Errorf("rejected segment %s missing failed_at", seg.ID)
		}
		if seg.RejectionReason == "" {
			t.Errorf("rejected segment %s missing rejection_reason", seg.ID)
		}
	}

	if got := outcome.Meta.FailuresByGate[gates[0].Name]; got != 1 {
		t.Errorf("expected 1 failure at %s, got %d", gates[0].Name, got)
	}
}

func TestFilter_ShortCircuit(t *testing.T) {
	eval := newFakeEvaluator()
	gates := DefaultGates()
	eval.failAt["seg-1"] = gates[1].Name

	p := NewPipeline(eval, 0, 1)
	outcome, err := p.Filter(context.Background(), makeCandidates(1), gates)
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}

	seg := outcome.Rejected[0]
	if seg.FailedAt != gates[1].Name {
		t.Errorf("expected failure at %s, got %s", gates[1].Name, seg.FailedAt)
	}
	// gate_results holds gates up to and including the failure, nothing after.
	if len(seg.GateResults) != 2 {
		t.Errorf("expected 2 gate results, got %d", len(seg.GateResults))
	}
	for _, gate := range gates[2:] {
		if eval.callCount("seg-1", gate.Name) != 0 {
			t.Errorf("gate %s was evaluated after the failing gate", gate.Name)
		}
	}
}

func TestFilter_OracleUnavailableIsIsolated(t *testing.T) {
	noSleep(t)
	eval := newFakeEvaluator()
	gates := DefaultGates()
	eval.errBudget["seg-2"] = 100 // never recovers

	p := NewPipeline(eval, 2, 2)
	outcome, err := p.Filter(context.Background(), makeCandidates(3), gates)
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}

	if len(outcome.Passed) != 2 {
		t.Errorf("expected 2 passed despite sibling oracle failure, got %d", len(outcome.Passed))
	}
	if len(outcome.Rejected) != 1 {
		t.Fatalf("expected 1 rejected, got %d", len(outcome.Rejected))
	}

	seg := outcome.Rejected[0]
	if seg.RejectionReason != model.RejectionOracleUnavailable {
		t.Errorf("expected rejection_reason %q, got %q", model.RejectionOracleUnavailable, seg.RejectionReason)
	}
	if seg.FailedAt != gates[0].Name {
		t.Errorf("expected failed_at %s, got %s", gates[0].Name, seg.FailedAt)
	}
	// maxRetries=2 means 3 attempts total on the first gate.
	if got := eval.callCount("seg-2", gates[0].Name); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFilter_TransientErrorRecovers(t *testing.T) {
	noSleep(t)
	eval := newFakeEvaluator()
	eval.errBudget["seg-1"] = 2

	p := NewPipeline(eval, 2, 1)
	outcome, err := p.Filter(context.Background(), makeCandidates(1), DefaultGates())
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}

	if len(outcome.Passed) != 1 {
		t.Fatalf("expected segment to pass after retries, got %d passed", len(outcome.Passed))
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	p := NewPipeline(newFakeEvaluator(), 0, 4)
	outcome, err := p.Filter(context.Background(), nil, DefaultGates())
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(outcome.Passed) != 0 || len(outcome.Rejected) != 0 || outcome.Meta.TotalSegments != 0 {
		t.Errorf("expected empty outcome, got %+v", outcome.Meta)
	}
}

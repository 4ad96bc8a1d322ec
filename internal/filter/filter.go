// Package filter runs candidate segments through ordered binary quality
// gates, short-circuiting each segment at its first failing gate.
package filter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/oracle"
)

// sleepFunc is the sleep used between oracle retries (injectable for tests)
var sleepFunc = time.Sleep

// Pipeline evaluates segments against ordered gates via the oracle.
type Pipeline struct {
	eval       oracle.GateEvaluator
	maxRetries int
	workers    int
}

// NewPipeline creates a filter pipeline. maxRetries bounds per-call oracle
// retries; workers bounds concurrent segment evaluation.
func NewPipeline(eval oracle.GateEvaluator, maxRetries, workers int) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Pipeline{eval: eval, maxRetries: maxRetries, workers: workers}
}

// Filter evaluates every candidate against the gates in order. Segments are
// independent: one segment's oracle failure never aborts the others.
// Segments fan out across a bounded worker set, but within a segment gates
// always run sequentially so a failure short-circuits the rest.
//
// Cancellation is checked at segment boundaries only. On cancellation the
// returned outcome covers the segments that finished, alongside ctx's error.
func (p *Pipeline) Filter(ctx context.Context, candidates []model.CandidateSegment, gates []model.GateSpec) (*model.FilterOutcome, error) {
	ordered := make([]model.GateSpec, len(gates))
	copy(ordered, gates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	results := make([]model.CandidateSegment, len(candidates))
	processed := make([]bool, len(candidates))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.workers)

	for i, cand := range candidates {
		wg.Add(1)
		go func(idx int, seg model.CandidateSegment) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = p.evaluateSegment(ctx, seg, ordered)
			processed[idx] = true
		}(i, cand)
	}
	wg.Wait()

	outcome := &model.FilterOutcome{
		Passed:   []model.CandidateSegment{},
		Rejected: []model.CandidateSegment{},
		Meta: model.FilterMeta{
			FilteredAt:     time.Now().UTC(),
			FailuresByGate: make(map[string]int),
		},
	}
	for i := range results {
		if !processed[i] {
			continue
		}
		seg := results[i]
		outcome.Meta.TotalSegments++
		if seg.Passed {
			outcome.Passed = append(outcome.Passed, seg)
		} else {
			outcome.Rejected = append(outcome.Rejected, seg)
			outcome.Meta.FailuresByGate[seg.FailedAt]++
		}
	}
	outcome.Meta.PassedCount = len(outcome.Passed)
	outcome.Meta.RejectedCount = len(outcome.Rejected)

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// evaluateSegment runs the gates strictly in order and stops at the first
// failure. GateResults ends up holding exactly the gates evaluated up to
// and including that failure.
func (p *Pipeline) evaluateSegment(ctx context.Context, seg model.CandidateSegment, gates []model.GateSpec) model.CandidateSegment {
	content := SegmentContent(seg)
	seg.GateResults = nil

	for _, gate := range gates {
		verdict, err := p.evaluateWithRetry(ctx, content, gate)
		if err != nil {
			// Fail closed, but with a reason the recovery scanner can
			// distinguish from a genuine gate rejection.
			seg.Passed = false
			seg.FailedAt = gate.Name
			seg.RejectionReason = model.RejectionOracleUnavailable
			return seg
		}

		seg.GateResults = append(seg.GateResults, model.GateResult{
			Gate:          gate.Name,
			Passed:        verdict.Passed,
			Justification: verdict.Justification,
			Evidence:      verdict.Evidence,
		})

		if !verdict.Passed {
			seg.Passed = false
			seg.FailedAt = gate.Name
			seg.RejectionReason = verdict.Justification
			return seg
		}
	}

	seg.Passed = true
	seg.FailedAt = ""
	seg.RejectionReason = ""
	return seg
}

// evaluateWithRetry retries transient oracle failures with exponential
// backoff. Non-transient errors and verdicts return immediately.
func (p *Pipeline) evaluateWithRetry(ctx context.Context, content string, gate model.GateSpec) (oracle.Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		verdict, err := p.eval.Evaluate(ctx, content, gate)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if !oracle.IsTransient(err) {
			break
		}
		if attempt < p.maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			sleepFunc(backoff)
		}
	}
	return oracle.Verdict{}, lastErr
}

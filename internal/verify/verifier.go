// Package verify runs the iterative rebuttal correction loop over a
// script's post_clip sections.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/oracle"
)

// sleepFunc is the sleep used between oracle retries (injectable for tests)
var sleepFunc = time.Sleep

// RebuttalGates returns the four content gates every rebuttal must clear.
func RebuttalGates() []model.GateSpec {
	return []model.GateSpec{
		{Name: "accuracy", Order: 0, Prompt: "Is every factual statement in this rebuttal accurate?"},
		{Name: "completeness", Order: 1, Prompt: "Does this rebuttal address the full claim, not just part of it?"},
		{Name: "sources", Order: 2, Prompt: "Does this rebuttal name or clearly allude to citable sources?"},
		{Name: "clarity", Order: 3, Prompt: "Is this rebuttal clear and understandable when read aloud?"},
	}
}

// Outcome bundles the updated script with the run metadata; it is the
// shape persisted as the rebuttal_verification stage artifact.
type Outcome struct {
	Script model.UnifiedScript `json:"script"`
	Meta   Metadata            `json:"meta"`
}

// Metadata summarizes a verification run. RebuttalsVerified counts every
// post_clip section processed, regardless of outcome.
type Metadata struct {
	RebuttalsVerified int                        `json:"rebuttals_verified"`
	Results           []model.VerificationResult `json:"results"`
}

// Verifier corrects and validates rebuttal text section by section.
type Verifier struct {
	eval          oracle.GateEvaluator
	rewriter      oracle.ContentRewriter
	maxIterations int
	maxRetries    int
}

// NewVerifier creates a verifier. maxIterations bounds evaluation rounds
// per section; maxRetries bounds retries of a single transient oracle call.
func NewVerifier(eval oracle.GateEvaluator, rewriter oracle.ContentRewriter, maxIterations, maxRetries int) *Verifier {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Verifier{eval: eval, rewriter: rewriter, maxIterations: maxIterations, maxRetries: maxRetries}
}

// sectionState is the correction loop's state. Passed and exhausted are
// terminal.
type sectionState int

const (
	stateEvaluating sectionState = iota
	stateCorrecting
	statePassed
	stateExhausted
)

// Verify processes every post_clip section in order and returns an updated
// copy of the script; the input is never mutated. Sections that exhaust
// their iterations keep the last produced draft rather than reverting.
// Cancellation is checked at section boundaries only.
func (v *Verifier) Verify(ctx context.Context, script *model.UnifiedScript) (*model.UnifiedScript, *Metadata, error) {
	updated := *script
	updated.Sections = make([]model.ScriptSection, len(script.Sections))
	copy(updated.Sections, script.Sections)

	meta := &Metadata{}

	for _, idx := range updated.PostClipSections() {
		if err := ctx.Err(); err != nil {
			return &updated, meta, err
		}

		result := v.verifySection(ctx, updated.Sections[idx])
		updated.Sections[idx].Content = result.FinalContent

		meta.RebuttalsVerified++
		meta.Results = append(meta.Results, result)
	}

	return &updated, meta, nil
}

// verifySection runs the bounded correction state machine for one section:
// evaluate all four gates, rewrite on failure while iterations remain, stop
// at the first clean round or when the budget runs out.
func (v *Verifier) verifySection(ctx context.Context, sec model.ScriptSection) model.VerificationResult {
	result := model.VerificationResult{
		SectionID:    sec.SectionID,
		FinalContent: sec.Content,
	}

	content := sec.Content
	var failing []string

	state := stateEvaluating
	for state == stateEvaluating || state == stateCorrecting {
		switch state {
		case stateEvaluating:
			result.Iterations++
			gates, feedback, err := v.evaluateGates(ctx, content)
			result.Gates = gates
			failing = feedback
			switch {
			case err != nil:
				result.Warning = fmt.Sprintf("verification aborted: %v", err)
				state = stateExhausted
			case len(failing) == 0:
				state = statePassed
			case result.Iterations < v.maxIterations:
				state = stateCorrecting
			default:
				result.Warning = fmt.Sprintf("rebuttal still failing [%s] after %d iterations",
					strings.Join(failingGateNames(result.Gates), ", "), result.Iterations)
				state = stateExhausted
			}

		case stateCorrecting:
			corrected, err := v.rewriteWithRetry(ctx, content, failing)
			if err != nil {
				result.Warning = fmt.Sprintf("rewrite failed: %v", err)
				state = stateExhausted
				break
			}
			content = corrected
			state = stateEvaluating
		}
	}

	result.Passed = state == statePassed
	result.FinalContent = content
	return result
}

// evaluateGates runs all four rebuttal gates over the content. Unlike the
// segment filter there is no short-circuit: the rewriter needs the complete
// picture of what failed.
func (v *Verifier) evaluateGates(ctx context.Context, content string) (map[string]model.GateResult, []string, error) {
	gates := make(map[string]model.GateResult, 4)
	var feedback []string

	for _, gate := range RebuttalGates() {
		verdict, err := v.callWithRetry(ctx, func() (oracle.Verdict, error) {
			return v.eval.Evaluate(ctx, content, gate)
		})
		if err != nil {
			return gates, nil, fmt.Errorf("gate %s: %w", gate.Name, err)
		}

		gates[gate.Name] = model.GateResult{
			Gate:          gate.Name,
			Passed:        verdict.Passed,
			Justification: verdict.Justification,
			Evidence:      verdict.Evidence,
		}
		if !verdict.Passed {
			feedback = append(feedback, fmt.Sprintf("%s: %s", gate.Name, verdict.Justification))
		}
	}

	return gates, feedback, nil
}

func (v *Verifier) rewriteWithRetry(ctx context.Context, content string, feedback []string) (string, error) {
	var corrected string
	_, err := v.callWithRetry(ctx, func() (oracle.Verdict, error) {
		var rewriteErr error
		corrected, rewriteErr = v.rewriter.Rewrite(ctx, content, feedback)
		return oracle.Verdict{}, rewriteErr
	})
	if err != nil {
		return "", err
	}
	return corrected, nil
}

// callWithRetry retries transient oracle failures with exponential backoff,
// same policy as the segment filter.
func (v *Verifier) callWithRetry(ctx context.Context, call func() (oracle.Verdict, error)) (oracle.Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= v.maxRetries; attempt++ {
		verdict, err := call()
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if !oracle.IsTransient(err) {
			break
		}
		if attempt < v.maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			sleepFunc(backoff)
		}
	}
	return oracle.Verdict{}, lastErr
}

func failingGateNames(gates map[string]model.GateResult) []string {
	var names []string
	for _, gate := range RebuttalGates() {
		if gr, ok := gates[gate.Name]; ok && !gr.Passed {
			names = append(names, gate.Name)
		}
	}
	return names
}

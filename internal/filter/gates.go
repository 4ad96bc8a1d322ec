package filter

import "github.com/clipcheck/clipcheck/internal/model"

// DefaultGates returns the ordered binary gates a candidate must clear.
// Order matters: cheap knock-out questions come first so most rejects cost
// one oracle call.
func DefaultGates() []model.GateSpec {
	return []model.GateSpec{
		{
			Name:   "claim_verifiability",
			Order:  0,
			Prompt: "Does this segment contain at least one concrete, checkable factual claim (not pure opinion, prediction, or rhetoric)?",
		},
		{
			Name:   "factual_error_likelihood",
			Order:  1,
			Prompt: "Is the central claim likely false or seriously misleading based on established knowledge?",
		},
		{
			Name:   "check_worthiness",
			Order:  2,
			Prompt: "Would a general audience care whether this claim is true? Is it consequential rather than trivial?",
		},
		{
			Name:   "harm_potential",
			Order:  3,
			Prompt: "Could believing this claim plausibly cause real-world harm (health, financial, civic)?",
		},
		{
			Name:   "rebuttal_strength",
			Order:  4,
			Prompt: "Can this claim be rebutted concisely with citable evidence, within a short video segment?",
		},
	}
}

// SegmentContent renders the gate-evaluation view of a segment: title,
// context, and claims as one content string.
func SegmentContent(seg model.CandidateSegment) string {
	content := "Title: " + seg.Title
	if seg.Description != "" {
		content += "\nContext: " + seg.Description
	}
	if seg.Severity != "" {
		content += "\nSeverity: " + seg.Severity
	}
	for _, claim := range seg.Claims {
		content += "\nClaim: " + claim
	}
	return content
}

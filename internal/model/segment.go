package model

import (
	"encoding/json"
	"time"
)

// CandidateSegment is an extracted claim unit awaiting approval.
// Upstream extraction produces loosely-typed records, so unknown JSON keys
// are preserved in Extra instead of being dropped.
type CandidateSegment struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"` // context around the claim
	Claims      []string `json:"claims,omitempty"`
	Severity    string   `json:"severity,omitempty"` // low, medium, high
	Topics      []string `json:"topics,omitempty"`   // derived, not authored

	// Filter pipeline output. GateResults holds only the gates evaluated up
	// to and including the first failure, in evaluation order.
	GateResults     []GateResult `json:"gate_results,omitempty"`
	Passed          bool         `json:"passed"`
	FailedAt        string       `json:"failed_at,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`

	// Extra carries attributes this tool does not interpret (timestamps,
	// speaker names, upstream scores) through unchanged.
	Extra map[string]any `json:"extra,omitempty"`
}

// GateResult is one gate's verdict on a segment or content string.
type GateResult struct {
	Gate          string `json:"gate"`
	Passed        bool   `json:"passed"`
	Justification string `json:"justification,omitempty"`
	Evidence      string `json:"evidence,omitempty"`
}

// GateSpec names a binary quality gate and fixes its position in the
// evaluation order. Every gate is terminal on failure.
type GateSpec struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	// Prompt is the question posed to the judgment oracle. The verdict
	// logic itself is opaque to this tool.
	Prompt string `json:"prompt,omitempty"`
}

// FilterOutcome is the result of running all candidates through the gate
// pipeline. Passed and Rejected are disjoint and together cover the input.
type FilterOutcome struct {
	Passed   []CandidateSegment `json:"passed"`
	Rejected []CandidateSegment `json:"rejected"`
	Meta     FilterMeta         `json:"meta"`
}

// FilterMeta summarizes a filter run.
type FilterMeta struct {
	FilteredAt     time.Time      `json:"filtered_at"`
	TotalSegments  int            `json:"total_segments"`
	PassedCount    int            `json:"passed_count"`
	RejectedCount  int            `json:"rejected_count"`
	FailuresByGate map[string]int `json:"failures_by_gate,omitempty"`
}

// RejectionOracleUnavailable marks segments rejected because the oracle
// could not be reached, not because a gate judged them. The false-negative
// scanner treats these as recoverable.
const RejectionOracleUnavailable = "oracle_unavailable"

// segmentAlias avoids recursion in the custom (un)marshalers.
type segmentAlias CandidateSegment

var segmentKnownKeys = map[string]bool{
	"id": true, "title": true, "description": true, "claims": true,
	"severity": true, "topics": true, "gate_results": true, "passed": true,
	"failed_at": true, "rejection_reason": true, "extra": true,
}

// UnmarshalJSON decodes the known fields and stashes every unrecognized
// top-level key into Extra, so round-tripping never loses upstream data.
func (s *CandidateSegment) UnmarshalJSON(data []byte) error {
	var alias segmentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		if segmentKnownKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]any)
		}
		alias.Extra[key] = v
	}

	*s = CandidateSegment(alias)
	return nil
}

// MarshalJSON re-inlines Extra keys at the top level, mirroring the shape
// the record arrived in.
func (s CandidateSegment) MarshalJSON() ([]byte, error) {
	alias := segmentAlias(s)
	extra := alias.Extra
	alias.Extra = nil

	base, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, val := range extra {
		if _, exists := merged[key]; !exists {
			merged[key] = val
		}
	}
	return json.Marshal(merged)
}

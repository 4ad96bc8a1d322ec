// Package recovery rescues plausibly-misjudged rejects from the gate
// pipeline.
//
// The near-miss heuristic is approximate by construction: the filter
// short-circuits, so gates after the failing one were never evaluated. A
// "late failure" only suggests the segment would have cleared the rest; it
// does not measure it.
package recovery

import (
	"strings"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/topics"
)

// Scanner applies three independent recovery heuristics over rejected
// segments and merges their hits.
type Scanner struct {
	// MinGatesPassed is the minimum number of gates a reject must have
	// cleared before its failure to count as a near-miss.
	MinGatesPassed int
	// Keywords flag high-severity subject matter regardless of which gate
	// rejected the segment.
	Keywords []string
	// MaxRecovery caps the merged result.
	MaxRecovery int
}

// NewScanner creates a scanner with the given thresholds.
func NewScanner(minGatesPassed int, keywords []string, maxRecovery int) *Scanner {
	return &Scanner{
		MinGatesPassed: minGatesPassed,
		Keywords:       keywords,
		MaxRecovery:    maxRecovery,
	}
}

// Scan returns rejects worth a second look: near-misses, rejects covering
// topics absent from the selected set, and keyword matches. Candidates from
// the three heuristics are deduplicated by id in discovery order and
// truncated to MaxRecovery. The result is always a subset of rejected.
func (s *Scanner) Scan(rejected, selected []model.CandidateSegment) []model.CandidateSegment {
	if len(rejected) == 0 || s.MaxRecovery <= 0 {
		return []model.CandidateSegment{}
	}

	covered := topics.Coverage(selected)

	recovered := make([]model.CandidateSegment, 0, s.MaxRecovery)
	seen := make(map[string]bool)
	admit := func(seg model.CandidateSegment) {
		if seen[seg.ID] || len(recovered) >= s.MaxRecovery {
			return
		}
		seen[seg.ID] = true
		recovered = append(recovered, seg)
	}

	for _, seg := range rejected {
		if s.isNearMiss(seg) {
			admit(seg)
		}
	}
	for _, seg := range rejected {
		if s.coversMissingTopic(seg, covered) {
			admit(seg)
		}
	}
	for _, seg := range rejected {
		if s.matchesKeyword(seg) {
			admit(seg)
		}
	}

	return recovered
}

// isNearMiss reports whether the segment cleared enough gates before
// failing. Gates never evaluated (short-circuit, oracle outage) count for
// nothing.
func (s *Scanner) isNearMiss(seg model.CandidateSegment) bool {
	passed := 0
	for _, gr := range seg.GateResults {
		if gr.Passed {
			passed++
		}
	}
	return passed >= s.MinGatesPassed
}

// coversMissingTopic reports whether the segment has topics and none of
// them appear in the selected set's coverage.
func (s *Scanner) coversMissingTopic(seg model.CandidateSegment, covered map[string]bool) bool {
	segTopics := topics.Derive(seg)
	if len(segTopics) == 0 {
		return false
	}
	for _, t := range segTopics {
		if covered[t] {
			return false
		}
	}
	return true
}

// matchesKeyword scans title, description, and claims for the configured
// high-severity keywords, independent of which gate failed.
func (s *Scanner) matchesKeyword(seg model.CandidateSegment) bool {
	if len(s.Keywords) == 0 {
		return false
	}
	text := strings.ToLower(seg.Title + " " + seg.Description + " " + strings.Join(seg.Claims, " "))
	for _, kw := range s.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

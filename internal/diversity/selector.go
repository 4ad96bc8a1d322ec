// Package diversity picks a bounded, topic-balanced subset of approved
// segments.
package diversity

import (
	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/topics"
)

// Selector holds the selection bounds. MinCount and MaxCount bound the
// output size, MaxPerTopic caps how many selected segments may share a
// topic before the relaxed top-up kicks in.
type Selector struct {
	MinCount    int
	MaxCount    int
	MaxPerTopic int
}

// NewSelector creates a selector with the given bounds.
func NewSelector(minCount, maxCount, maxPerTopic int) *Selector {
	return &Selector{MinCount: minCount, MaxCount: maxCount, MaxPerTopic: maxPerTopic}
}

// Select runs two passes over the passed segments, preserving input order.
//
// Pass 1 is greedy: a segment is admitted only while every one of its
// topics is below MaxPerTopic. Pass 2 relaxes the per-topic cap to top up
// to MinCount when pass 1 came in under it. MaxCount is a hard cap in both
// passes. Fewer inputs than MinCount returns all of them.
//
// Selection only reads and copies; input segments are never mutated. A
// segment with no derivable topic counts against no cap and is always
// admissible in pass 1.
func (s *Selector) Select(passed []model.CandidateSegment) []model.CandidateSegment {
	if len(passed) <= s.MinCount {
		selected := make([]model.CandidateSegment, len(passed))
		copy(selected, passed)
		return selected
	}

	segTopics := make([][]string, len(passed))
	for i, seg := range passed {
		segTopics[i] = topics.Derive(seg)
	}

	selected := make([]model.CandidateSegment, 0, s.MaxCount)
	taken := make([]bool, len(passed))
	topicCounts := make(map[string]int)

	// Pass 1: greedy under the per-topic cap.
	for i, seg := range passed {
		if len(selected) >= s.MaxCount {
			break
		}
		if !underCap(segTopics[i], topicCounts, s.MaxPerTopic) {
			continue
		}
		for _, t := range segTopics[i] {
			topicCounts[t]++
		}
		selected = append(selected, seg)
		taken[i] = true
	}

	// Pass 2: relaxed top-up, ignoring the per-topic cap, until MinCount is
	// reached or input is exhausted. MaxCount still binds.
	if len(selected) < s.MinCount {
		for i, seg := range passed {
			if len(selected) >= s.MinCount || len(selected) >= s.MaxCount {
				break
			}
			if taken[i] {
				continue
			}
			selected = append(selected, seg)
			taken[i] = true
		}
	}

	return selected
}

func underCap(segTopics []string, counts map[string]int, maxPerTopic int) bool {
	for _, t := range segTopics {
		if counts[t] >= maxPerTopic {
			return false
		}
	}
	return true
}

// Package topics derives coarse topic tags for candidate segments from a
// local keyword taxonomy. It is pure and never calls out: topic balance has
// to be reproducible across reruns, unlike oracle verdicts.
package topics

import (
	"sort"
	"strings"

	"github.com/clipcheck/clipcheck/internal/model"
)

// taxonomy maps a topic tag to the keywords that signal it. Matching is
// case-insensitive substring matching over title and description.
var taxonomy = map[string][]string{
	"health":      {"vaccine", "vaccin", "cancer", "disease", "medical", "doctor", "cure", "virus", "covid", "health"},
	"politics":    {"election", "senate", "congress", "president", "vote", "ballot", "campaign", "policy", "government"},
	"economy":     {"inflation", "economy", "tax", "gdp", "unemployment", "tariff", "interest rate", "stock market", "wages"},
	"science":     {"climate", "study", "research", "scientist", "physics", "quantum", "evolution", "nasa", "energy"},
	"crime":       {"crime", "murder", "police", "arrest", "fraud", "shooting", "prison", "trial"},
	"immigration": {"immigrant", "immigration", "border", "asylum", "deport", "migrant"},
	"technology":  {"ai ", "artificial intelligence", "algorithm", "social media", "internet", "crypto", "software"},
	"history":     {"founding", "world war", "historical", "century", "ancient", "constitution"},
}

// Derive returns the sorted topic tags matched for a segment. A segment
// with no matches returns nil and is treated as topic-less by selection.
// Missing or malformed fields simply produce no matches.
func Derive(seg model.CandidateSegment) []string {
	text := strings.ToLower(seg.Title + " " + seg.Description)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matched []string
	for topic, keywords := range taxonomy {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, topic)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

// Coverage collects the union of topics across segments.
func Coverage(segments []model.CandidateSegment) map[string]bool {
	covered := make(map[string]bool)
	for _, seg := range segments {
		for _, topic := range Derive(seg) {
			covered[topic] = true
		}
	}
	return covered
}

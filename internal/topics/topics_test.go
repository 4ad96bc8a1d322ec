package topics

import (
	"testing"

	"github.com/clipcheck/clipcheck/internal/model"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		title string
		desc  string
		want  []string
	}{
		{"Vaccine injury numbers", "", []string{"health"}},
		{"Election night irregularities", "claims of ballot fraud", []string{"crime", "politics"}},
		{"Nothing matches here", "", nil},
		{"", "", nil},
	}

	for _, tc := range cases {
		got := Derive(model.CandidateSegment{Title: tc.title, Description: tc.desc})
		if len(got) != len(tc.want) {
			t.Errorf("Derive(%q): got %v, want %v", tc.title, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Derive(%q): got %v, want %v", tc.title, got, tc.want)
				break
			}
		}
	}
}

func TestCoverage(t *testing.T) {
	segs := []model.CandidateSegment{
		{Title: "Vaccine claim"},
		{Title: "Senate vote claim"},
		{Title: "no topic"},
	}
	covered := Coverage(segs)
	if !covered["health"] || !covered["politics"] {
		t.Errorf("coverage = %v", covered)
	}
	if len(covered) != 2 {
		t.Errorf("unexpected extra topics: %v", covered)
	}
}

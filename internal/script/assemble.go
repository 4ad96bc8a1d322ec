// Package script assembles the final segment set into a unified script
// skeleton. The production script generator is an external service; this
// deterministic assembler fills the same contract so the pipeline runs end
// to end without it.
package script

import (
	"fmt"
	"strings"

	"github.com/clipcheck/clipcheck/internal/model"
)

// Assemble builds a script in the canonical shape: hook_clip, intro, then a
// pre_clip / video_clip / post_clip triple per segment, then outro. Clip
// timestamps come from the segment's passthrough attributes when present.
func Assemble(theme string, segments []model.CandidateSegment) *model.UnifiedScript {
	s := &model.UnifiedScript{
		Theme: theme,
		Title: fmt.Sprintf("Fact-checking %d claims: %s", len(segments), theme),
	}

	if len(segments) > 0 {
		s.Sections = append(s.Sections, model.ScriptSection{
			SectionID: "hook",
			Type:      model.SectionHookClip,
			Content:   hookLine(segments[0]),
			ClipID:    clipID(segments[0]),
			StartTime: extraString(segments[0], "start_time"),
			EndTime:   extraString(segments[0], "end_time"),
		})
	}

	s.Sections = append(s.Sections, model.ScriptSection{
		SectionID: "intro",
		Type:      model.SectionIntro,
		Content: fmt.Sprintf("Today we are looking at %d claims about %s. "+
			"For each one, we play the clip and then check the record.", len(segments), theme),
	})

	for i, seg := range segments {
		id := clipID(seg)

		s.Sections = append(s.Sections, model.ScriptSection{
			SectionID:     fmt.Sprintf("pre_%d", i+1),
			Type:          model.SectionPreClip,
			Content:       fmt.Sprintf("Claim %d: %s.", i+1, strings.TrimRight(seg.Title, ".")),
			ClipReference: id,
		})

		s.Sections = append(s.Sections, model.ScriptSection{
			SectionID: fmt.Sprintf("clip_%d", i+1),
			Type:      model.SectionVideoClip,
			Content:   clipTranscript(seg),
			ClipID:    id,
			StartTime: extraString(seg, "start_time"),
			EndTime:   extraString(seg, "end_time"),
		})

		s.Sections = append(s.Sections, model.ScriptSection{
			SectionID:     fmt.Sprintf("post_%d", i+1),
			Type:          model.SectionPostClip,
			Content:       draftRebuttal(seg),
			ClipReference: id,
		})
	}

	s.Sections = append(s.Sections, model.ScriptSection{
		SectionID: "outro",
		Type:      model.SectionOutro,
		Content:   "That is all the claims for today. Check the description for every source we used.",
	})

	return s
}

func clipID(seg model.CandidateSegment) string {
	return "segment_" + seg.ID
}

func hookLine(seg model.CandidateSegment) string {
	if len(seg.Claims) > 0 {
		return seg.Claims[0]
	}
	return seg.Title
}

func clipTranscript(seg model.CandidateSegment) string {
	if len(seg.Claims) > 0 {
		return strings.Join(seg.Claims, " ")
	}
	return seg.Description
}

// draftRebuttal produces the initial rebuttal text the verifier will
// iterate on.
func draftRebuttal(seg model.CandidateSegment) string {
	subject := seg.Title
	if len(seg.Claims) > 0 {
		subject = seg.Claims[0]
	}
	return fmt.Sprintf("The claim that %s does not hold up. %s",
		strings.TrimRight(subject, "."),
		"Here is what the record actually shows.")
}

func extraString(seg model.CandidateSegment, key string) string {
	if seg.Extra == nil {
		return ""
	}
	if val, ok := seg.Extra[key].(string); ok {
		return val
	}
	return ""
}

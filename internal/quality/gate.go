// Package quality validates the structural integrity of an assembled
// script before it is handed to downstream rendering.
package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clipcheck/clipcheck/internal/model"
)

// Check names, as reported in QualityIssue.CheckName.
const (
	CheckClipReference  = "clip_reference_resolution"
	CheckTimestampOrder = "timestamp_order"
	CheckEmptyContent   = "empty_content"
	CheckTTSFormatting  = "tts_formatting"
	CheckSectionSchema  = "section_schema"
)

// ttsHostileTokens are substrings that read badly through text-to-speech.
// Their presence is informational only.
var ttsHostileTokens = []string{"&", "%", "http://", "https://", "**", "##", "<", ">"}

// Validate runs every structural check over the script and aggregates the
// findings. Malformed input produces issues, never a panic or an error:
// validation always completes.
func Validate(script *model.UnifiedScript) model.QualityGateResult {
	var issues []model.QualityIssue

	issues = append(issues, checkSectionSchema(script)...)
	issues = append(issues, checkClipReferences(script)...)
	issues = append(issues, checkTimestampOrder(script)...)
	issues = append(issues, checkEmptyContent(script)...)
	issues = append(issues, checkTTSFormatting(script)...)

	critical := 0
	for _, issue := range issues {
		if issue.Severity == model.SeverityCritical {
			critical++
		}
	}

	return model.QualityGateResult{
		Passed:        critical == 0,
		CriticalCount: critical,
		Issues:        issues,
	}
}

// checkSectionSchema flags unknown section types. Unknown types are still
// scanned by the other checks; the issue is informational.
func checkSectionSchema(script *model.UnifiedScript) []model.QualityIssue {
	var issues []model.QualityIssue
	for _, sec := range script.Sections {
		if !model.KnownSectionTypes[sec.Type] {
			issues = append(issues, model.QualityIssue{
				CheckName: CheckSectionSchema,
				Severity:  model.SeverityInfo,
				Message:   fmt.Sprintf("unknown section type %q", sec.Type),
				SectionID: sec.SectionID,
			})
		}
	}
	return issues
}

// checkClipReferences verifies every pre_clip/post_clip clip_reference
// resolves to a video_clip's clip_id in the same script.
func checkClipReferences(script *model.UnifiedScript) []model.QualityIssue {
	clipIDs := make(map[string]bool)
	for _, sec := range script.Sections {
		if sec.Type == model.SectionVideoClip && sec.ClipID != "" {
			clipIDs[sec.ClipID] = true
		}
	}

	var issues []model.QualityIssue
	for _, sec := range script.Sections {
		if sec.Type != model.SectionPreClip && sec.Type != model.SectionPostClip {
			continue
		}
		if sec.ClipReference == "" {
			continue
		}
		if !clipIDs[sec.ClipReference] {
			issues = append(issues, model.QualityIssue{
				CheckName: CheckClipReference,
				Severity:  model.SeverityCritical,
				Message:   fmt.Sprintf("clip_reference %q matches no video_clip clip_id", sec.ClipReference),
				SectionID: sec.SectionID,
			})
		}
	}
	return issues
}

// checkTimestampOrder verifies every video_clip has parseable timestamps
// with start strictly before end. Missing or unparseable timestamps are
// reported, not raised.
func checkTimestampOrder(script *model.UnifiedScript) []model.QualityIssue {
	var issues []model.QualityIssue
	for _, sec := range script.Sections {
		if sec.Type != model.SectionVideoClip {
			continue
		}

		start, startErr := ParseTimestamp(sec.StartTime)
		end, endErr := ParseTimestamp(sec.EndTime)
		switch {
		case startErr != nil:
			issues = append(issues, timestampIssue(sec, fmt.Sprintf("bad start_time %q: %v", sec.StartTime, startErr)))
		case endErr != nil:
			issues = append(issues, timestampIssue(sec, fmt.Sprintf("bad end_time %q: %v", sec.EndTime, endErr)))
		case start >= end:
			issues = append(issues, timestampIssue(sec, fmt.Sprintf("start_time %q is not before end_time %q", sec.StartTime, sec.EndTime)))
		}
	}
	return issues
}

func timestampIssue(sec model.ScriptSection, msg string) model.QualityIssue {
	return model.QualityIssue{
		CheckName: CheckTimestampOrder,
		Severity:  model.SeverityCritical,
		Message:   msg,
		SectionID: sec.SectionID,
	}
}

// checkEmptyContent flags any section whose primary content field is empty
// or whitespace.
func checkEmptyContent(script *model.UnifiedScript) []model.QualityIssue {
	var issues []model.QualityIssue
	for _, sec := range script.Sections {
		if strings.TrimSpace(sec.Content) == "" {
			issues = append(issues, model.QualityIssue{
				CheckName: CheckEmptyContent,
				Severity:  model.SeverityCritical,
				Message:   "section content is empty",
				SectionID: sec.SectionID,
			})
		}
	}
	return issues
}

// checkTTSFormatting heuristically scans narrated sections for tokens that
// speech synthesis mangles. Always INFO; never blocks the script.
func checkTTSFormatting(script *model.UnifiedScript) []model.QualityIssue {
	var issues []model.QualityIssue
	for _, sec := range script.Sections {
		if sec.Type == model.SectionVideoClip {
			continue // clip transcript is played, not synthesized
		}
		for _, token := range ttsHostileTokens {
			if strings.Contains(sec.Content, token) {
				issues = append(issues, model.QualityIssue{
					CheckName: CheckTTSFormatting,
					Severity:  model.SeverityInfo,
					Message:   fmt.Sprintf("content contains speech-hostile token %q", token),
					SectionID: sec.SectionID,
				})
			}
		}
		if containsBareDollarAmount(sec.Content) {
			issues = append(issues, model.QualityIssue{
				CheckName: CheckTTSFormatting,
				Severity:  model.SeverityInfo,
				Message:   "content contains a bare dollar amount; spell it out for TTS",
				SectionID: sec.SectionID,
			})
		}
	}
	return issues
}

func containsBareDollarAmount(content string) bool {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '$' && content[i+1] >= '0' && content[i+1] <= '9' {
			return true
		}
	}
	return false
}

// ParseTimestamp parses "SS", "MM:SS", or "HH:MM:SS" (fractional seconds
// allowed) into seconds.
func ParseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("missing timestamp")
	}

	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many components")
	}

	var total float64
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || val < 0 {
			return 0, fmt.Errorf("bad component %q", part)
		}
		total = total*60 + val
	}
	return total, nil
}

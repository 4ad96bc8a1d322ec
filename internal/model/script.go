package model

// SectionType classifies a script section.
type SectionType string

const (
	SectionIntro     SectionType = "intro"
	SectionPreClip   SectionType = "pre_clip"
	SectionVideoClip SectionType = "video_clip"
	SectionPostClip  SectionType = "post_clip"
	SectionOutro     SectionType = "outro"
	SectionHookClip  SectionType = "hook_clip"
)

// KnownSectionTypes lists every section type the structural validator
// understands.
var KnownSectionTypes = map[SectionType]bool{
	SectionIntro:     true,
	SectionPreClip:   true,
	SectionVideoClip: true,
	SectionPostClip:  true,
	SectionOutro:     true,
	SectionHookClip:  true,
}

// ScriptSection is one ordered unit of the final script.
// Content is the primary narration/rebuttal text; video_clip sections carry
// the clip transcript excerpt there. ClipID identifies a video_clip,
// ClipReference points a pre_clip/post_clip at its clip.
type ScriptSection struct {
	SectionID     string      `json:"section_id"`
	Type          SectionType `json:"section_type"`
	Content       string      `json:"content"`
	ClipID        string      `json:"clip_id,omitempty"`
	ClipReference string      `json:"clip_reference,omitempty"`
	StartTime     string      `json:"start_time,omitempty"` // "MM:SS" or "HH:MM:SS"
	EndTime       string      `json:"end_time,omitempty"`
}

// UnifiedScript is the assembled fact-check script consumed by downstream
// audio/video rendering.
type UnifiedScript struct {
	Theme       string          `json:"theme"`
	Title       string          `json:"title,omitempty"`
	SourceMedia string          `json:"source_media,omitempty"`
	Sections    []ScriptSection `json:"sections"`
}

// PostClipSections returns the indices of post_clip sections in order.
func (s *UnifiedScript) PostClipSections() []int {
	var idx []int
	for i, sec := range s.Sections {
		if sec.Type == SectionPostClip {
			idx = append(idx, i)
		}
	}
	return idx
}

// VerificationResult records the outcome of iterative rebuttal correction
// for one section. Warning is set exactly when Passed is false.
type VerificationResult struct {
	SectionID    string                `json:"section_id"`
	Passed       bool                  `json:"passed"`
	Iterations   int                   `json:"iterations"`
	FinalContent string                `json:"final_content"`
	Gates        map[string]GateResult `json:"gates,omitempty"` // accuracy, completeness, sources, clarity
	Warning      string                `json:"warning,omitempty"`
}

// IssueSeverity grades a structural quality issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "CRITICAL"
	SeverityInfo     IssueSeverity = "INFO"
)

// QualityIssue is one finding from the output quality gate.
type QualityIssue struct {
	CheckName string        `json:"check_name"`
	Severity  IssueSeverity `json:"severity"`
	Message   string        `json:"message"`
	SectionID string        `json:"section_id,omitempty"`
}

// QualityGateResult aggregates structural validation of a whole script.
// Passed holds exactly when CriticalCount is zero; INFO issues never block.
type QualityGateResult struct {
	Passed        bool           `json:"passed"`
	CriticalCount int            `json:"critical_count"`
	Issues        []QualityIssue `json:"issues"`
}

package types

// GapLevel is the severity of a skill gap.
type GapLevel string

// GapLevel values. Anything else coming back from the model is coerced to
// GapMedium during validation.
const (
	GapLow    GapLevel = "Low"
	GapMedium GapLevel = "Medium"
	GapHigh   GapLevel = "High"
)

// ValidGapLevel reports whether l is one of the three accepted levels.
func ValidGapLevel(l GapLevel) bool {
	return l == GapLow || l == GapMedium || l == GapHigh
}

// SkillGapRecord is one skill the user likely lacks for the target role.
// Every numeric field is clamped or defaulted before the record is stored;
// see the analysis package for the rules.
type SkillGapRecord struct {
	SkillName       string   `json:"skill_name"`
	GapLevel        GapLevel `json:"gap_level"`        // Low | Medium | High
	ConfidenceScore float64  `json:"confidence_score"` // [0,100]
	MentionCount    int      `json:"mention_count"`    // >= 0, defaults to 1
	ContextSummary  string   `json:"context_summary"`  // may be empty
}

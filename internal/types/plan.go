package types

// Priority is the urgency of a milestone. Invalid values default to
// PriorityMedium during validation.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ValidPriority reports whether p is one of the three accepted priorities.
func ValidPriority(p Priority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Resource is one recommended learning resource attached to a milestone.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"` // free-form label: Video, Book, Course, GitHub, ...
}

// Milestone is one step in a generated learning plan.
type Milestone struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Priority      Priority   `json:"priority"`
	DurationWeeks int        `json:"duration_weeks"` // > 0, defaulted from config if missing
	Order         int        `json:"order"`          // 1-based sequence position
	Progress      int        `json:"progress"`       // [0,100], initialized to 0
	Resources     []Resource `json:"resources"`
}

package types

// CommonPath is one frequently-cited transition route with its citation
// count. Count is clamped to [1, max(corpusSize, 5)] by the aggregator.
type CommonPath struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// TransitionOverview holds the aggregate statistics computed over a story
// corpus. All fields are bounded regardless of what the model returns.
type TransitionOverview struct {
	SuccessRate             float64      `json:"success_rate"`               // [0,100]
	AvgTransitionTimeMonths int          `json:"avg_transition_time_months"` // >= 1
	CommonPaths             []CommonPath `json:"common_paths"`
}

// TransitionInsights holds the narrative observations synthesized from the
// corpus. These are display-only strings with no format invariant, the
// weakest-validated output in the pipeline.
type TransitionInsights struct {
	KeyObservations  []string `json:"key_observations"`
	CommonChallenges []string `json:"common_challenges"`
}

// Package analysis derives skill gaps, aggregate statistics, and narrative
// insights from a scraped story corpus. Each analyzer follows the same
// shape: embed the corpus in a prompt, call the search model, parse with a
// bounded fallback, and pass every field through the validation rules so a
// malformed record never fails the batch.
package analysis

import (
	"fmt"
	"strings"

	"github.com/jonathan/transition-planner/internal/types"
)

// buildCorpus renders the story corpus for prompt embedding. Stories are
// numbered so the model can cite them.
func buildCorpus(stories []types.ScrapedStory) string {
	var sb strings.Builder
	for i, s := range stories {
		fmt.Fprintf(&sb, "Story %d (source: %s, date: %s):\n%s\n\n", i+1, s.Source, s.Date, s.Content)
	}
	return strings.TrimSpace(sb.String())
}

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/prompts"
	"github.com/jonathan/transition-planner/internal/types"
)

// InsightSynthesizer extracts narrative observations and challenges from a
// story corpus. Elements are validated only for being coercible to string:
// these are display-only narrative values, deliberately the weakest-checked
// output in the pipeline.
type InsightSynthesizer struct {
	client    llm.SearchClient
	maxTokens int
}

// NewInsightSynthesizer creates an insight synthesizer.
func NewInsightSynthesizer(client llm.SearchClient, maxTokens int) *InsightSynthesizer {
	return &InsightSynthesizer{client: client, maxTokens: maxTokens}
}

type rawInsights struct {
	KeyObservations  []any `json:"key_observations"`
	CommonChallenges []any `json:"common_challenges"`
}

// Synthesize prompts the model and returns the narrative insight lists.
func (s *InsightSynthesizer) Synthesize(ctx context.Context, currentRole, targetRole string, stories []types.ScrapedStory) (types.TransitionInsights, error) {
	template := prompts.MustGet("analysis.json", "synthesize-insights")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole": currentRole,
		"TargetRole":  targetRole,
		"Corpus":      buildCorpus(stories),
	})

	raw, err := s.client.Search(ctx, prompt, s.maxTokens, llm.TierLite)
	if err != nil {
		return types.TransitionInsights{}, err
	}

	objText, parseErr := extractObject("insight-synthesis", raw)
	if parseErr != nil {
		return types.TransitionInsights{}, parseErr
	}

	var ri rawInsights
	if err := json.Unmarshal([]byte(objText), &ri); err != nil {
		return types.TransitionInsights{}, &ParseError{Stage: "insight-synthesis", Message: "object did not decode", Cause: err}
	}

	return types.TransitionInsights{
		KeyObservations:  coerceStrings(ri.KeyObservations),
		CommonChallenges: coerceStrings(ri.CommonChallenges),
	}, nil
}

// coerceStrings renders each element as a string, dropping empties. Numbers
// and booleans are kept via their default formatting; nested structures are
// dropped rather than dumped.
func coerceStrings(values []any) []string {
	var out []string
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case float64, bool:
			out = append(out, fmt.Sprintf("%v", t))
		}
	}
	return out
}

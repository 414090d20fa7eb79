package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/prompts"
	"github.com/jonathan/transition-planner/internal/types"
	"github.com/jonathan/transition-planner/internal/validation"
)

// OverviewAggregator computes success-rate, transition-time, and common-path
// statistics over a story corpus.
type OverviewAggregator struct {
	client    llm.SearchClient
	maxTokens int
}

// NewOverviewAggregator creates an overview aggregator.
func NewOverviewAggregator(client llm.SearchClient, maxTokens int) *OverviewAggregator {
	return &OverviewAggregator{client: client, maxTokens: maxTokens}
}

type rawOverview struct {
	SuccessRate             *float64  `json:"success_rate"`
	AvgTransitionTimeMonths *float64  `json:"avg_transition_time_months"`
	CommonPaths             []rawPath `json:"common_paths"`
}

type rawPath struct {
	Path  string   `json:"path"`
	Count *float64 `json:"count"`
}

// Aggregate prompts the model with the full corpus and bounds every field
// of the result: success rate clamped to [0,100], average months floored
// at 1, and each path count clamped to [1, max(corpusSize, 5)].
func (a *OverviewAggregator) Aggregate(ctx context.Context, currentRole, targetRole string, stories []types.ScrapedStory) (types.TransitionOverview, validation.Warnings, error) {
	template := prompts.MustGet("analysis.json", "transition-overview")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole": currentRole,
		"TargetRole":  targetRole,
		"CorpusSize":  strconv.Itoa(len(stories)),
		"Corpus":      buildCorpus(stories),
	})

	raw, err := a.client.Search(ctx, prompt, a.maxTokens, llm.TierStandard)
	if err != nil {
		return types.TransitionOverview{}, nil, err
	}

	objText, parseErr := extractObject("transition-overview", raw)
	if parseErr != nil {
		return types.TransitionOverview{}, nil, parseErr
	}

	var ro rawOverview
	if err := json.Unmarshal([]byte(objText), &ro); err != nil {
		return types.TransitionOverview{}, nil, &ParseError{Stage: "transition-overview", Message: "object did not decode", Cause: err}
	}

	var warnings validation.Warnings
	overview := types.TransitionOverview{}

	if ro.SuccessRate == nil {
		warnings.Addf("overview.success_rate", "<missing>", 0, "missing success rate, defaulted")
	} else {
		overview.SuccessRate = validation.ClampFloat(&warnings, "overview.success_rate", *ro.SuccessRate, 0, 100)
	}

	months := 1
	if ro.AvgTransitionTimeMonths == nil {
		warnings.Addf("overview.avg_transition_time_months", "<missing>", months, "missing transition time, defaulted")
	} else {
		months = validation.FloorInt(&warnings, "overview.avg_transition_time_months", int(*ro.AvgTransitionTimeMonths), 1)
	}
	overview.AvgTransitionTimeMonths = months

	for i, rp := range ro.CommonPaths {
		path := strings.TrimSpace(rp.Path)
		if path == "" {
			warnings.Addf(fmt.Sprintf("overview.common_paths[%d].path", i), rp.Path, "", "empty path, dropped")
			continue
		}
		count := 1
		if rp.Count != nil {
			count = int(*rp.Count)
		}
		count = validation.ClampPathCount(&warnings, fmt.Sprintf("overview.common_paths[%d].count", i), count, len(stories))
		overview.CommonPaths = append(overview.CommonPaths, types.CommonPath{Path: path, Count: count})
	}

	return overview, warnings, nil
}

// extractObject locates a JSON object in a raw response: first a braced
// substring, then the entire cleaned response.
func extractObject(stage, raw string) (string, error) {
	cleaned := llm.CleanJSONBlock(raw)

	if objText := llm.ExtractJSONObject(cleaned); objText != "" {
		var probe map[string]json.RawMessage
		if json.Unmarshal([]byte(objText), &probe) == nil {
			return objText, nil
		}
	}

	var probe map[string]json.RawMessage
	if json.Unmarshal([]byte(cleaned), &probe) == nil {
		return cleaned, nil
	}

	return "", &ParseError{Stage: stage, Message: "no JSON object found in response"}
}

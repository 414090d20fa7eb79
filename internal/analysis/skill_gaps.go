package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/prompts"
	"github.com/jonathan/transition-planner/internal/schemas"
	"github.com/jonathan/transition-planner/internal/types"
	"github.com/jonathan/transition-planner/internal/validation"
)

// GapAnalyzer infers skill gaps from a story corpus.
type GapAnalyzer struct {
	client    llm.SearchClient
	maxTokens int
}

// NewGapAnalyzer creates a skill-gap analyzer.
func NewGapAnalyzer(client llm.SearchClient, maxTokens int) *GapAnalyzer {
	return &GapAnalyzer{client: client, maxTokens: maxTokens}
}

// rawSkillGap mirrors the model's output with optional numerics as pointers
// so missing fields are distinguishable from zero values.
type rawSkillGap struct {
	SkillName       string   `json:"skill_name"`
	GapLevel        string   `json:"gap_level"`
	ConfidenceScore *float64 `json:"confidence_score"`
	MentionCount    *int     `json:"mention_count"`
	ContextSummary  string   `json:"context_summary"`
}

// Analyze prompts the search model with the corpus and known skills, then
// parses and validates the returned skill-gap list. Returns ParseError when
// no parse strategy succeeds; individual malformed records are corrected
// via defaults and reported through warnings, never failing the batch.
func (a *GapAnalyzer) Analyze(ctx context.Context, currentRole, targetRole string, stories []types.ScrapedStory, knownSkills []string) ([]types.SkillGapRecord, validation.Warnings, error) {
	template := prompts.MustGet("analysis.json", "analyze-skill-gaps")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole": currentRole,
		"TargetRole":  targetRole,
		"KnownSkills": strings.Join(knownSkills, ", "),
		"Corpus":      buildCorpus(stories),
	})

	raw, err := a.client.Search(ctx, prompt, a.maxTokens, llm.TierStandard)
	if err != nil {
		return nil, nil, err
	}

	arrayText, parseErr := extractArray("skill-gap-analysis", raw)
	if parseErr != nil {
		return nil, nil, parseErr
	}

	if findings, err := schemas.Check(schemas.SkillGaps, arrayText); err == nil && len(findings) > 0 {
		log.Printf("[analyze] skill-gap schema findings: %s", schemas.Summarize(findings))
	}

	var rawGaps []rawSkillGap
	if err := json.Unmarshal([]byte(arrayText), &rawGaps); err != nil {
		return nil, nil, &ParseError{Stage: "skill-gap-analysis", Message: "array did not decode", Cause: err}
	}

	var warnings validation.Warnings
	gaps := make([]types.SkillGapRecord, 0, len(rawGaps))
	for i, rg := range rawGaps {
		record, ok := validateSkillGap(i, rg, &warnings)
		if ok {
			gaps = append(gaps, record)
		}
	}
	return gaps, warnings, nil
}

// validateSkillGap applies the field rules: skill name required, gap level
// restricted to the enum (default Medium), confidence clamped to [0,100],
// mention count at least 0 with a default of 1 when absent or negative.
func validateSkillGap(idx int, rg rawSkillGap, warnings *validation.Warnings) (types.SkillGapRecord, bool) {
	field := func(name string) string {
		return fmt.Sprintf("skill_gaps[%d].%s", idx, name)
	}

	name := strings.TrimSpace(rg.SkillName)
	if name == "" {
		warnings.Addf(field("skill_name"), rg.SkillName, "", "empty skill name, record dropped")
		return types.SkillGapRecord{}, false
	}

	level := types.GapLevel(strings.TrimSpace(rg.GapLevel))
	if !types.ValidGapLevel(level) {
		warnings.Addf(field("gap_level"), rg.GapLevel, types.GapMedium, "invalid gap level, defaulted")
		level = types.GapMedium
	}

	confidence := 50.0
	if rg.ConfidenceScore == nil {
		warnings.Addf(field("confidence_score"), "<missing>", confidence, "missing confidence, defaulted")
	} else {
		confidence = validation.ClampFloat(warnings, field("confidence_score"), *rg.ConfidenceScore, 0, 100)
	}

	mentions := 1
	if rg.MentionCount == nil {
		warnings.Addf(field("mention_count"), "<missing>", mentions, "missing mention count, defaulted")
	} else if *rg.MentionCount < 0 {
		warnings.Addf(field("mention_count"), *rg.MentionCount, mentions, "negative mention count, defaulted")
	} else {
		mentions = *rg.MentionCount
	}

	return types.SkillGapRecord{
		SkillName:       name,
		GapLevel:        level,
		ConfidenceScore: confidence,
		MentionCount:    mentions,
		ContextSummary:  strings.TrimSpace(rg.ContextSummary),
	}, true
}

// extractArray locates a JSON array in a raw response: first a bracketed
// substring, then the entire cleaned response. Both failing is a ParseError.
func extractArray(stage, raw string) (string, error) {
	cleaned := llm.CleanJSONBlock(raw)

	if arrayText := llm.ExtractJSONArray(cleaned); arrayText != "" {
		var probe []json.RawMessage
		if json.Unmarshal([]byte(arrayText), &probe) == nil {
			return arrayText, nil
		}
	}

	var probe []json.RawMessage
	if json.Unmarshal([]byte(cleaned), &probe) == nil {
		return cleaned, nil
	}

	return "", &ParseError{Stage: stage, Message: "no JSON array found in response"}
}

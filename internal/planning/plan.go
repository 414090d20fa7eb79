// Package planning generates the milestone learning plan for a transition
// from the prioritized skill-gap list, including the resource backfill
// enrichment for milestones the model returned without resources.
package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/prompts"
	"github.com/jonathan/transition-planner/internal/schemas"
	"github.com/jonathan/transition-planner/internal/types"
	"github.com/jonathan/transition-planner/internal/validation"
)

// DefaultDurationWeeks is used when the model omits a milestone duration
// and no override is configured.
const DefaultDurationWeeks = 4

// maxBackfillConcurrency bounds parallel resource lookups per plan.
const maxBackfillConcurrency = 3

// Generator produces milestone plans.
type Generator struct {
	client llm.SearchClient

	// DurationWeeksDefault substitutes for missing/invalid durations.
	DurationWeeksDefault int
	// MaxTokens bounds each search call.
	MaxTokens int
	// Backfill enables the supplementary resource lookup for milestones
	// that parse with an empty resource list.
	Backfill bool
}

// NewGenerator creates a plan generator with backfill enabled.
func NewGenerator(client llm.SearchClient, maxTokens, durationDefault int) *Generator {
	if durationDefault <= 0 {
		durationDefault = DefaultDurationWeeks
	}
	return &Generator{
		client:               client,
		DurationWeeksDefault: durationDefault,
		MaxTokens:            maxTokens,
		Backfill:             true,
	}
}

type rawMilestone struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Priority      string           `json:"priority"`
	DurationWeeks *float64         `json:"duration_weeks"`
	Order         *int             `json:"order"`
	Resources     []types.Resource `json:"resources"`
}

// Generate requests an ordered milestone list for the prioritized skills
// and validates every field: priority restricted to the enum (default
// Medium), duration defaulted when missing or non-positive, order defaulted
// to array position, progress initialized to zero. Milestones arriving with
// no resources get a supplementary single-milestone lookup before the plan
// is finalized; backfill failures are tolerated.
func (g *Generator) Generate(ctx context.Context, currentRole, targetRole string, prioritizedSkills []string) ([]types.Milestone, validation.Warnings, error) {
	template := prompts.MustGet("planning.json", "generate-plan")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole": currentRole,
		"TargetRole":  targetRole,
		"Skills":      strings.Join(prioritizedSkills, "\n"),
	})

	raw, err := g.client.Search(ctx, prompt, g.MaxTokens, llm.TierAdvanced)
	if err != nil {
		return nil, nil, err
	}

	arrayText, parseErr := planArray(raw)
	if parseErr != nil {
		return nil, nil, parseErr
	}

	if findings, err := schemas.Check(schemas.Milestones, arrayText); err == nil && len(findings) > 0 {
		log.Printf("[plan] milestone schema findings: %s", schemas.Summarize(findings))
	}

	var rawMilestones []rawMilestone
	if err := json.Unmarshal([]byte(arrayText), &rawMilestones); err != nil {
		return nil, nil, &analysis.ParseError{Stage: "plan-generation", Message: "array did not decode", Cause: err}
	}

	var warnings validation.Warnings
	milestones := make([]types.Milestone, 0, len(rawMilestones))
	for i, rm := range rawMilestones {
		m, ok := g.validateMilestone(i, rm, &warnings)
		if ok {
			milestones = append(milestones, m)
		}
	}

	if g.Backfill {
		g.backfillResources(ctx, currentRole, targetRole, milestones)
	}

	return milestones, warnings, nil
}

func (g *Generator) validateMilestone(idx int, rm rawMilestone, warnings *validation.Warnings) (types.Milestone, bool) {
	field := func(name string) string {
		return fmt.Sprintf("milestones[%d].%s", idx, name)
	}

	title := strings.TrimSpace(rm.Title)
	if title == "" {
		warnings.Addf(field("title"), rm.Title, "", "empty title, milestone dropped")
		return types.Milestone{}, false
	}

	priority := types.Priority(strings.TrimSpace(rm.Priority))
	if !types.ValidPriority(priority) {
		warnings.Addf(field("priority"), rm.Priority, types.PriorityMedium, "invalid priority, defaulted")
		priority = types.PriorityMedium
	}

	duration := g.DurationWeeksDefault
	if rm.DurationWeeks == nil {
		warnings.Addf(field("duration_weeks"), "<missing>", duration, "missing duration, defaulted")
	} else {
		duration = validation.DefaultIntIfNotPositive(warnings, field("duration_weeks"), int(*rm.DurationWeeks), g.DurationWeeksDefault)
	}

	order := idx + 1
	if rm.Order != nil && *rm.Order > 0 {
		order = *rm.Order
	} else if rm.Order != nil {
		warnings.Addf(field("order"), *rm.Order, order, "non-positive order, defaulted to position")
	}

	resources := make([]types.Resource, 0, len(rm.Resources))
	for _, r := range rm.Resources {
		r.Title = strings.TrimSpace(r.Title)
		r.URL = strings.TrimSpace(r.URL)
		r.Type = strings.TrimSpace(r.Type)
		if r.Title == "" && r.URL == "" {
			continue
		}
		resources = append(resources, r)
	}

	return types.Milestone{
		Title:         title,
		Description:   strings.TrimSpace(rm.Description),
		Priority:      priority,
		DurationWeeks: duration,
		Order:         order,
		Progress:      0,
		Resources:     resources,
	}, true
}

// backfillResources issues one supplementary lookup per resource-less
// milestone, bounded in concurrency. Enrichment, not a hard failure: a
// lookup that errors or parses empty leaves the milestone as-is.
func (g *Generator) backfillResources(ctx context.Context, currentRole, targetRole string, milestones []types.Milestone) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxBackfillConcurrency)

	for i := range milestones {
		if len(milestones[i].Resources) > 0 {
			continue
		}
		m := &milestones[i]
		eg.Go(func() error {
			resources, err := g.lookupResources(ctx, currentRole, targetRole, m.Title)
			if err != nil {
				log.Printf("[plan] resource backfill failed for %q: %v", m.Title, err)
				return nil
			}
			m.Resources = resources
			return nil
		})
	}

	_ = eg.Wait()
}

func (g *Generator) lookupResources(ctx context.Context, currentRole, targetRole, milestoneTitle string) ([]types.Resource, error) {
	template := prompts.MustGet("planning.json", "backfill-resources")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole":    currentRole,
		"TargetRole":     targetRole,
		"MilestoneTitle": milestoneTitle,
	})

	raw, err := g.client.Search(ctx, prompt, g.MaxTokens, llm.TierLite)
	if err != nil {
		return nil, err
	}

	arrayText, parseErr := planArray(raw)
	if parseErr != nil {
		return nil, parseErr
	}

	var resources []types.Resource
	if err := json.Unmarshal([]byte(arrayText), &resources); err != nil {
		return nil, &analysis.ParseError{Stage: "resource-backfill", Message: "array did not decode", Cause: err}
	}

	out := resources[:0]
	for _, r := range resources {
		r.Title = strings.TrimSpace(r.Title)
		r.URL = strings.TrimSpace(r.URL)
		r.Type = strings.TrimSpace(r.Type)
		if r.Title != "" || r.URL != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// planArray locates a JSON array in a raw response, mirroring the analysis
// package's two-step fallback.
func planArray(raw string) (string, error) {
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

	return "", &analysis.ParseError{Stage: "plan-generation", Message: "no JSON array found in response"}
}

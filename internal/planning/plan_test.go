package planning

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/types"
)

// scriptedClient routes each prompt through a handler func, safe for the
// concurrent backfill lookups.
type scriptedClient struct {
	mu      sync.Mutex
	handler func(prompt string) (string, error)
	prompts []string
}

func (s *scriptedClient) Search(_ context.Context, prompt string, _ int, _ llm.ModelTier) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.handler(prompt)
}

func (s *scriptedClient) Close() error { return nil }

const planResponse = `[
	{"title": "Learn Python", "description": "Core language skills", "priority": "High", "duration_weeks": 6, "order": 1,
	 "resources": [{"title": "Python docs", "url": "https://docs.python.org", "type": "documentation"}]},
	{"title": "Build a portfolio project", "priority": "Bogus", "order": 0},
	{"title": "", "priority": "Low"},
	{"title": "Interview preparation", "duration_weeks": -2}
]`

func TestGenerateValidation(t *testing.T) {
	client := &scriptedClient{handler: func(prompt string) (string, error) {
		return planResponse, nil
	}}
	g := NewGenerator(client, 2048, 4)
	g.Backfill = false

	milestones, warnings, err := g.Generate(context.Background(), "Accountant", "Data Engineer", []string{"Python (High gap)"})
	require.NoError(t, err)
	require.Len(t, milestones, 3, "empty-title milestone dropped")

	first := milestones[0]
	assert.Equal(t, types.PriorityHigh, first.Priority)
	assert.Equal(t, 6, first.DurationWeeks)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, 0, first.Progress)
	require.Len(t, first.Resources, 1)

	second := milestones[1]
	assert.Equal(t, types.PriorityMedium, second.Priority, "unknown priority defaults to Medium")
	assert.Equal(t, 4, second.DurationWeeks, "missing duration takes the configured default")
	assert.Equal(t, 2, second.Order, "non-positive order defaults to array position")

	third := milestones[2]
	assert.Equal(t, 4, third.DurationWeeks, "negative duration defaulted")
	assert.Equal(t, 4, third.Order)

	assert.NotEmpty(t, warnings)
}

func TestGenerateBackfillsEmptyResources(t *testing.T) {
	client := &scriptedClient{handler: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Build a portfolio project") {
			return `[{"title": "Project ideas list", "url": "https://example.com/ideas", "type": "article"}]`, nil
		}
		if strings.Contains(prompt, "Interview preparation") {
			return "", &llm.UpstreamError{Message: "quota exceeded"}
		}
		return planResponse, nil
	}}
	g := NewGenerator(client, 2048, 4)

	milestones, _, err := g.Generate(context.Background(), "A", "B", []string{"Python"})
	require.NoError(t, err)
	require.Len(t, milestones, 3)

	// Already-resourced milestone untouched.
	assert.Equal(t, "Python docs", milestones[0].Resources[0].Title)

	// Resource-less milestone enriched by the supplementary lookup.
	require.Len(t, milestones[1].Resources, 1)
	assert.Equal(t, "Project ideas list", milestones[1].Resources[0].Title)

	// Failed lookup tolerated: milestone survives with no resources.
	assert.Empty(t, milestones[2].Resources)
}

func TestGenerateParseError(t *testing.T) {
	client := &scriptedClient{handler: func(string) (string, error) {
		return "nothing structured", nil
	}}
	g := NewGenerator(client, 2048, 4)

	_, _, err := g.Generate(context.Background(), "A", "B", nil)
	var parseErr *analysis.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "plan-generation", parseErr.Stage)
}

func TestLookupResourcesFiltersEmptyEntries(t *testing.T) {
	client := &scriptedClient{handler: func(string) (string, error) {
		return `[
			{"title": "Good", "url": "https://a.example", "type": "course"},
			{"title": "", "url": "", "type": "ignored"}
		]`, nil
	}}
	g := NewGenerator(client, 2048, 4)

	resources, err := g.lookupResources(context.Background(), "A", "B", "Learn Python")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "Good", resources[0].Title)
}

package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/dates"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/planning"
	"github.com/jonathan/transition-planner/internal/scraping"
	"github.com/jonathan/transition-planner/internal/store"
	"github.com/jonathan/transition-planner/internal/types"
)

// scriptedClient routes prompts to canned responses by recognizing which
// pipeline stage built them.
type scriptedClient struct {
	mu        sync.Mutex
	scrapeErr error
	calls     []string
}

const storiesResponse = `[
	{"source": "reddit", "content": "I moved from accounting to data engineering over eighteen months of evening study and a bootcamp.", "url": "https://reddit.com/r/careers/1", "date": "2024-03-07"},
	{"source": "blog", "content": "My transition took a year; the hardest part was learning to think in pipelines instead of spreadsheets.", "url": "Not provided", "date": "2 months ago"},
	{"source": "hn", "content": "Switched after a layoff. SQL carried me further than expected but Python was non-negotiable.", "url": "https://news.ycombinator.com/item?id=1", "date": "Not provided"}
]`

const gapsResponse = `[
	{"skill_name": "Python", "gap_level": "High", "confidence_score": 90, "mention_count": 3, "context_summary": "every story mentions it"},
	{"skill_name": "Data Pipelines", "gap_level": "Medium", "confidence_score": 70, "mention_count": 2, "context_summary": "two stories"}
]`

const planResponse = `[
	{"title": "Learn Python", "description": "Foundations first.", "priority": "High", "duration_weeks": 6, "order": 1,
	 "resources": [{"title": "Python docs", "url": "https://docs.python.org", "type": "documentation"}]}
]`

const overviewResponse = `{"success_rate": 70, "avg_transition_time_months": 14, "common_paths": [{"path": "bootcamp", "count": 2}]}`

const insightsResponse = `{"key_observations": ["most switchers studied at night"], "common_challenges": ["first role is the hardest to land"]}`

func (c *scriptedClient) Search(_ context.Context, prompt string, _ int, _ llm.ModelTier) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.Contains(prompt, "first-person accounts"):
		c.calls = append(c.calls, "scrape")
		if c.scrapeErr != nil {
			return "", c.scrapeErr
		}
		return storiesResponse, nil
	case strings.Contains(prompt, "identify the skills"):
		c.calls = append(c.calls, "gaps")
		return gapsResponse, nil
	case strings.Contains(prompt, "estimate aggregate statistics"):
		c.calls = append(c.calls, "overview")
		return overviewResponse, nil
	case strings.Contains(prompt, "narrative insights"):
		c.calls = append(c.calls, "insights")
		return insightsResponse, nil
	case strings.Contains(prompt, "ordered milestone plan"):
		c.calls = append(c.calls, "plan")
		return planResponse, nil
	case strings.Contains(prompt, "learning resources for this milestone"):
		c.calls = append(c.calls, "backfill")
		return `[]`, nil
	default:
		c.calls = append(c.calls, "unknown")
		return "", nil
	}
}

func (c *scriptedClient) Close() error { return nil }

func newTestOrchestrator(client llm.SearchClient) (*Orchestrator, *store.Memory) {
	st := store.NewMemory()
	parser := scraping.NewParser(dates.Normalizer{
		Now: func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
	})
	orch := New(
		st,
		scraping.NewScraper(client, parser, nil, 1024),
		analysis.NewGapAnalyzer(client, 1024),
		analysis.NewOverviewAggregator(client, 1024),
		analysis.NewInsightSynthesizer(client, 1024),
		planning.NewGenerator(client, 1024, 4),
		time.Minute,
	)
	return orch, st
}

// awaitScrape polls until the newest scrape job leaves pending/running.
func awaitScrape(t *testing.T, orch *Orchestrator, id uuid.UUID) store.ScrapeJob {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		jobs, err := orch.Jobs(context.Background(), id)
		require.NoError(t, err)
		if len(jobs) > 0 && jobs[0].Status != store.JobPending && jobs[0].Status != store.JobRunning {
			return jobs[0]
		}
		if time.Now().After(deadline) {
			t.Fatal("scrape job did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFullPipelineThreeStories(t *testing.T) {
	client := &scriptedClient{}
	orch, _ := newTestOrchestrator(client)
	ctx := context.Background()

	tr, created, err := orch.Start(ctx, "Accountant", "Data Engineer")
	require.NoError(t, err)
	assert.True(t, created)

	// The detached scrape finishes on its own.
	job := awaitScrape(t, orch, tr.ID)
	assert.Equal(t, store.JobSucceeded, job.Status)
	assert.Equal(t, 3, job.StoryCount)

	got, err := orch.store.GetTransition(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusScraped, got.Status)

	// Analyze.
	gapCount, err := orch.Analyze(ctx, tr.ID, []string{"Excel"})
	require.NoError(t, err)
	assert.Equal(t, 2, gapCount)

	// Plan marks the transition complete.
	plan, milestoneCount, err := orch.Plan(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 1, milestoneCount)

	got, _ = orch.store.GetTransition(ctx, tr.ID)
	assert.Equal(t, store.StatusComplete, got.Status)

	// On-demand computations.
	overview, err := orch.Overview(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, overview.SuccessRate)
	assert.Equal(t, 14, overview.AvgTransitionTimeMonths)

	insights, err := orch.Insights(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"most switchers studied at night"}, insights.KeyObservations)

	// Dashboard reads stored state only.
	d, err := orch.GetDashboard(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, d.StoryCount)
	assert.Len(t, d.SkillGaps, 2)
	require.NotNil(t, d.Plan)
	assert.Len(t, d.Milestones, 1)
	assert.Len(t, d.Jobs, 1)

	// Dates were normalized on the way into the corpus.
	stories, err := orch.Stories(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-15", stories[1].Date)
}

func TestStartIsIdempotentOnRolePair(t *testing.T) {
	client := &scriptedClient{}
	orch, _ := newTestOrchestrator(client)
	ctx := context.Background()

	first, created, err := orch.Start(ctx, "Accountant", "Data Engineer")
	require.NoError(t, err)
	assert.True(t, created)
	awaitScrape(t, orch, first.ID)

	second, created, err := orch.Start(ctx, "accountant", "data engineer")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// No second scrape job was started.
	jobs, err := orch.Jobs(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestScrapeFailureMarksJobAndTransition(t *testing.T) {
	client := &scriptedClient{scrapeErr: &llm.UpstreamError{Message: "quota exhausted"}}
	orch, _ := newTestOrchestrator(client)
	ctx := context.Background()

	tr, _, err := orch.Start(ctx, "Nurse", "Product Manager")
	require.NoError(t, err)

	job := awaitScrape(t, orch, tr.ID)
	assert.Equal(t, store.JobFailed, job.Status)
	assert.Contains(t, job.Error, "quota exhausted")

	got, err := orch.store.GetTransition(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestAnalyzeWithoutStories(t *testing.T) {
	client := &scriptedClient{}
	orch, st := newTestOrchestrator(client)
	ctx := context.Background()

	tr, err := st.CreateTransition(ctx, "A", "B")
	require.NoError(t, err)

	_, err = orch.Analyze(ctx, tr.ID, nil)
	assert.ErrorIs(t, err, ErrNoStories)
}

func TestPlanWithoutSkillGaps(t *testing.T) {
	client := &scriptedClient{}
	orch, st := newTestOrchestrator(client)
	ctx := context.Background()

	tr, err := st.CreateTransition(ctx, "A", "B")
	require.NoError(t, err)
	_, err = st.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{{Source: "s", Content: "c", URL: "u", Date: "d"}})
	require.NoError(t, err)

	_, _, err = orch.Plan(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrNoSkillGaps)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transition-planner/internal/types"
)

func testStory() types.ScrapedStory {
	return types.ScrapedStory{
		Source:  "reddit",
		Content: "a story about switching careers",
		URL:     "https://example.com",
		Date:    "2024-01-01",
	}
}

func TestCreateAndGetTransition(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateTransition(ctx, "Accountant", "Data Engineer")
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, created.Status)
	assert.Equal(t, 0, created.StageVersion)

	got, err := m.GetTransition(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = m.GetTransition(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTransitionByRolesCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateTransition(ctx, "Accountant", "Data Engineer")
	require.NoError(t, err)

	got, err := m.GetTransitionByRoles(ctx, "accountant", "DATA ENGINEER")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = m.GetTransitionByRoles(ctx, "Nurse", "Pilot")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceStoriesBumpsStageVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	v1, err := m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory()})
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	v2, err := m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory(), testStory()})
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	stories, version, err := m.GetStories(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, stories, 2)
	assert.Equal(t, 2, version)
}

func TestReplaceSkillGapsStaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	version, err := m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory()})
	require.NoError(t, err)

	gaps := []types.SkillGapRecord{{SkillName: "Python", GapLevel: types.GapHigh, ConfidenceScore: 80, MentionCount: 2}}

	// A second scrape lands between the read and the write.
	_, err = m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory()})
	require.NoError(t, err)

	err = m.ReplaceSkillGaps(ctx, tr.ID, gaps, version)
	assert.ErrorIs(t, err, ErrStaleStage)

	// Re-reading gives the current version and the write goes through.
	_, current, err := m.GetStories(ctx, tr.ID)
	require.NoError(t, err)
	require.NoError(t, m.ReplaceSkillGaps(ctx, tr.ID, gaps, current))

	stored, _, err := m.GetSkillGaps(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReplaceSkillGapsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")
	version, _ := m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory()})

	first := []types.SkillGapRecord{{SkillName: "Python", GapLevel: types.GapHigh, ConfidenceScore: 80, MentionCount: 2}}
	require.NoError(t, m.ReplaceSkillGaps(ctx, tr.ID, first, version))

	_, v2, _ := m.GetSkillGaps(ctx, tr.ID)
	second := []types.SkillGapRecord{{SkillName: "SQL", GapLevel: types.GapLow, ConfidenceScore: 60, MentionCount: 1}}
	require.NoError(t, m.ReplaceSkillGaps(ctx, tr.ID, second, v2))

	stored, _, err := m.GetSkillGaps(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1, "gaps are replaced, not merged")
	assert.Equal(t, "SQL", stored[0].SkillName)
}

func TestCreatePlanSupersedes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	milestones := []types.Milestone{{Title: "Learn Python", Priority: types.PriorityHigh, DurationWeeks: 4, Order: 1}}
	p1, err := m.CreatePlan(ctx, tr.ID, milestones, 0)
	require.NoError(t, err)

	p2, err := m.CreatePlan(ctx, tr.ID, milestones[:0], 0)
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p2.ID)

	current, stored, err := m.GetPlan(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, current.ID)
	assert.Empty(t, stored)
}

func TestCreatePlanStaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")
	_, _ = m.ReplaceStories(ctx, tr.ID, []types.ScrapedStory{testStory()})

	_, err := m.CreatePlan(ctx, tr.ID, nil, 0)
	assert.ErrorIs(t, err, ErrStaleStage)
}

func TestGetPlanNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	_, _, err := m.GetPlan(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScrapeJobLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	job, err := m.CreateScrapeJob(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)

	now := time.Now()
	job.Status = JobSucceeded
	job.StoryCount = 3
	job.StartedAt = &now
	job.FinishedAt = &now
	require.NoError(t, m.UpdateScrapeJob(ctx, job))

	jobs, err := m.ListScrapeJobs(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobSucceeded, jobs[0].Status)
	assert.Equal(t, 3, jobs[0].StoryCount)
}

func TestListScrapeJobsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	first, _ := m.CreateScrapeJob(ctx, tr.ID)
	// Force distinct timestamps.
	time.Sleep(2 * time.Millisecond)
	second, _ := m.CreateScrapeJob(ctx, tr.ID)

	jobs, err := m.ListScrapeJobs(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestUpdateTransitionStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tr, _ := m.CreateTransition(ctx, "A", "B")

	require.NoError(t, m.UpdateTransitionStatus(ctx, tr.ID, StatusScraping))
	got, _ := m.GetTransition(ctx, tr.ID)
	assert.Equal(t, StatusScraping, got.Status)

	assert.ErrorIs(t, m.UpdateTransitionStatus(ctx, uuid.New(), StatusFailed), ErrNotFound)
}

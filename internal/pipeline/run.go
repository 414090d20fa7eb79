// Package pipeline sequences the transition stages: scrape, analyze, plan,
// plus the on-demand overview and insight computations. Stage operations on
// one transition are serialized by an advisory lock, and writes derived from
// a stage read carry the stage version so interleaved rewrites are rejected
// instead of silently mixed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/planning"
	"github.com/jonathan/transition-planner/internal/scraping"
	"github.com/jonathan/transition-planner/internal/store"
	"github.com/jonathan/transition-planner/internal/types"
	"github.com/jonathan/transition-planner/internal/validation"
)

// ErrNoStories is returned by Analyze when the transition has no scraped
// corpus yet.
var ErrNoStories = errors.New("no scraped stories to analyze")

// ErrNoSkillGaps is returned by Plan when no skill gaps have been recorded.
var ErrNoSkillGaps = errors.New("no skill gaps to plan from")

// Orchestrator wires the stage components to the store.
type Orchestrator struct {
	store     store.Store
	scraper   *scraping.Scraper
	gaps      *analysis.GapAnalyzer
	overview  *analysis.OverviewAggregator
	insights  *analysis.InsightSynthesizer
	planner   *planning.Generator
	locks     *lockTable
	scrapeTTL time.Duration
}

// New creates an orchestrator. scrapeTTL bounds each detached scrape run;
// zero means 5 minutes.
func New(st store.Store, scraper *scraping.Scraper, gaps *analysis.GapAnalyzer, overview *analysis.OverviewAggregator, insights *analysis.InsightSynthesizer, planner *planning.Generator, scrapeTTL time.Duration) *Orchestrator {
	if scrapeTTL <= 0 {
		scrapeTTL = 5 * time.Minute
	}
	return &Orchestrator{
		store:     st,
		scraper:   scraper,
		gaps:      gaps,
		overview:  overview,
		insights:  insights,
		planner:   planner,
		locks:     newLockTable(),
		scrapeTTL: scrapeTTL,
	}
}

// Start creates a transition for the role pair and kicks off a detached
// scrape, returning immediately. Idempotent: an existing transition for the
// same role pair is returned as-is with created=false and no new scrape.
func (o *Orchestrator) Start(ctx context.Context, currentRole, targetRole string) (*store.Transition, bool, error) {
	existing, err := o.store.GetTransitionByRoles(ctx, currentRole, targetRole)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	t, err := o.store.CreateTransition(ctx, currentRole, targetRole)
	if err != nil {
		return nil, false, err
	}

	if _, err := o.StartScrape(ctx, t.ID); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// StartScrape records a pending scrape job and runs it in a detached
// goroutine. The job id is returned immediately; callers poll job state.
func (o *Orchestrator) StartScrape(ctx context.Context, id uuid.UUID) (*store.ScrapeJob, error) {
	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := o.store.CreateScrapeJob(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	go o.runScrape(t, job)
	return job, nil
}

// runScrape executes one scrape job end to end. Runs detached from the
// request context so the caller's disconnect does not abort the job.
func (o *Orchestrator) runScrape(t *store.Transition, job *store.ScrapeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), o.scrapeTTL)
	defer cancel()

	lock := o.locks.get(t.ID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	job.Status = store.JobRunning
	job.StartedAt = &now
	if err := o.store.UpdateScrapeJob(ctx, job); err != nil {
		log.Printf("[scrape] job %s: failed to mark running: %v", job.ID, err)
		return
	}
	if err := o.store.UpdateTransitionStatus(ctx, t.ID, store.StatusScraping); err != nil {
		log.Printf("[scrape] transition %s: failed to mark scraping: %v", t.ID, err)
	}

	stories, err := o.scraper.Scrape(ctx, t.CurrentRole, t.TargetRole)
	if err != nil {
		o.failScrape(ctx, t.ID, job, err)
		return
	}

	if _, err := o.store.ReplaceStories(ctx, t.ID, stories); err != nil {
		o.failScrape(ctx, t.ID, job, err)
		return
	}

	// Zero accepted stories is still a successful scrape; the job records
	// the count so callers can tell empty from never-ran.
	finished := time.Now()
	job.Status = store.JobSucceeded
	job.StoryCount = len(stories)
	job.FinishedAt = &finished
	if err := o.store.UpdateScrapeJob(ctx, job); err != nil {
		log.Printf("[scrape] job %s: failed to mark succeeded: %v", job.ID, err)
	}
	if err := o.store.UpdateTransitionStatus(ctx, t.ID, store.StatusScraped); err != nil {
		log.Printf("[scrape] transition %s: failed to mark scraped: %v", t.ID, err)
	}
	log.Printf("[scrape] transition %s: stored %d stories", t.ID, len(stories))
}

// failScrape records the failure on both the job and the transition.
func (o *Orchestrator) failScrape(ctx context.Context, id uuid.UUID, job *store.ScrapeJob, cause error) {
	log.Printf("[scrape] transition %s: scrape failed: %v", id, cause)

	finished := time.Now()
	job.Status = store.JobFailed
	job.Error = cause.Error()
	job.FinishedAt = &finished
	if err := o.store.UpdateScrapeJob(ctx, job); err != nil {
		log.Printf("[scrape] job %s: failed to record failure: %v", job.ID, err)
	}
	if err := o.store.UpdateTransitionStatus(ctx, id, store.StatusFailed); err != nil {
		log.Printf("[scrape] transition %s: failed to mark failed: %v", id, err)
	}
}

// Analyze runs skill-gap analysis over the stored corpus and replaces the
// transition's gaps wholesale. The write carries the stage version the
// corpus was read at, so a scrape landing mid-analysis rejects the write
// with store.ErrStaleStage rather than attaching stale gaps to a new corpus.
func (o *Orchestrator) Analyze(ctx context.Context, id uuid.UUID, knownSkills []string) (int, error) {
	lock := o.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return 0, err
	}

	stories, version, err := o.store.GetStories(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(stories) == 0 {
		return 0, ErrNoStories
	}

	gaps, warnings, err := o.gaps.Analyze(ctx, t.CurrentRole, t.TargetRole, stories, knownSkills)
	if err != nil {
		return 0, err
	}
	logWarnings("analyze", id, warnings)

	if err := o.store.ReplaceSkillGaps(ctx, id, gaps, version); err != nil {
		return 0, err
	}
	if err := o.store.UpdateTransitionStatus(ctx, id, store.StatusAnalyzed); err != nil {
		return 0, err
	}
	return len(gaps), nil
}

// Plan generates the milestone plan from the stored skill gaps and marks
// the transition complete.
func (o *Orchestrator) Plan(ctx context.Context, id uuid.UUID) (*store.Plan, int, error) {
	lock := o.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	gaps, version, err := o.store.GetSkillGaps(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if len(gaps) == 0 {
		return nil, 0, ErrNoSkillGaps
	}

	skills := make([]string, 0, len(gaps))
	for _, g := range gaps {
		skills = append(skills, fmt.Sprintf("%s (%s gap)", g.SkillName, g.GapLevel))
	}

	milestones, warnings, err := o.planner.Generate(ctx, t.CurrentRole, t.TargetRole, skills)
	if err != nil {
		return nil, 0, err
	}
	logWarnings("plan", id, warnings)

	plan, err := o.store.CreatePlan(ctx, id, milestones, version)
	if err != nil {
		return nil, 0, err
	}
	if err := o.store.UpdateTransitionStatus(ctx, id, store.StatusComplete); err != nil {
		return nil, 0, err
	}
	return plan, len(milestones), nil
}

// Overview computes the corpus statistics on demand. Read-only, no lock.
func (o *Orchestrator) Overview(ctx context.Context, id uuid.UUID) (types.TransitionOverview, error) {
	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return types.TransitionOverview{}, err
	}
	stories, _, err := o.store.GetStories(ctx, id)
	if err != nil {
		return types.TransitionOverview{}, err
	}

	overview, warnings, err := o.overview.Aggregate(ctx, t.CurrentRole, t.TargetRole, stories)
	if err != nil {
		return types.TransitionOverview{}, err
	}
	logWarnings("overview", id, warnings)
	return overview, nil
}

// Insights synthesizes the narrative observations on demand.
func (o *Orchestrator) Insights(ctx context.Context, id uuid.UUID) (types.TransitionInsights, error) {
	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return types.TransitionInsights{}, err
	}
	stories, _, err := o.store.GetStories(ctx, id)
	if err != nil {
		return types.TransitionInsights{}, err
	}
	return o.insights.Synthesize(ctx, t.CurrentRole, t.TargetRole, stories)
}

// Dashboard is the aggregate read model for one transition. Everything in
// it comes from the store; nothing is computed.
type Dashboard struct {
	Transition *store.Transition      `json:"transition"`
	StoryCount int                    `json:"story_count"`
	SkillGaps  []types.SkillGapRecord `json:"skill_gaps"`
	Plan       *store.Plan            `json:"plan,omitempty"`
	Milestones []types.Milestone      `json:"milestones,omitempty"`
	Jobs       []store.ScrapeJob      `json:"jobs"`
}

// GetDashboard assembles the stored state of a transition. A missing plan
// is not an error; the field is simply absent.
func (o *Orchestrator) GetDashboard(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	t, err := o.store.GetTransition(ctx, id)
	if err != nil {
		return nil, err
	}

	stories, _, err := o.store.GetStories(ctx, id)
	if err != nil {
		return nil, err
	}
	gaps, _, err := o.store.GetSkillGaps(ctx, id)
	if err != nil {
		return nil, err
	}
	jobs, err := o.store.ListScrapeJobs(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Transition: t,
		StoryCount: len(stories),
		SkillGaps:  gaps,
		Jobs:       jobs,
	}

	plan, milestones, err := o.store.GetPlan(ctx, id)
	switch {
	case err == nil:
		d.Plan = plan
		d.Milestones = milestones
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}
	return d, nil
}

// Jobs lists the transition's scrape jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context, id uuid.UUID) ([]store.ScrapeJob, error) {
	if _, err := o.store.GetTransition(ctx, id); err != nil {
		return nil, err
	}
	return o.store.ListScrapeJobs(ctx, id)
}

// Stories returns the stored corpus for read endpoints.
func (o *Orchestrator) Stories(ctx context.Context, id uuid.UUID) ([]types.ScrapedStory, error) {
	stories, _, err := o.store.GetStories(ctx, id)
	return stories, err
}

func logWarnings(stage string, id uuid.UUID, warnings validation.Warnings) {
	if len(warnings) == 0 {
		return
	}
	log.Printf("[%s] transition %s: %d validation corrections applied", stage, id, len(warnings))
	for _, w := range warnings {
		log.Printf("[%s]   %s: %s (raw=%v applied=%v)", stage, w.Field, w.Reason, w.Raw, w.Applied)
	}
}

// Package store provides persistence for transitions, their scraped story
// corpora, skill gaps, plans, and scrape jobs. Two implementations exist:
// Postgres for production and an in-memory store for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/transition-planner/internal/types"
)

// ErrNotFound is returned when a transition, plan, or job does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleStage is returned when a write carries an expected stage version
// that no longer matches the transition, meaning another stage operation
// rewrote the data this write was computed from.
var ErrStaleStage = errors.New("stale stage version")

// Transition status values. failed is absorbing and reachable from any
// stage on an unrecovered error.
const (
	StatusCreated  = "created"
	StatusScraping = "scraping"
	StatusScraped  = "scraped"
	StatusAnalyzed = "analyzed"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Scrape job status values.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Transition is one current-role/target-role pair under analysis.
type Transition struct {
	ID          uuid.UUID `json:"id"`
	CurrentRole string    `json:"current_role"`
	TargetRole  string    `json:"target_role"`
	Status      string    `json:"status"`
	// StageVersion increments on every corpus or skill-gap rewrite and
	// guards analyze/plan writes against interleaved stage operations.
	StageVersion int       `json:"stage_version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScrapeJob is the explicit record of one detached scraping task. Callers
// query job state instead of inferring it from the absence of stories.
type ScrapeJob struct {
	ID           uuid.UUID  `json:"id"`
	TransitionID uuid.UUID  `json:"transition_id"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	StoryCount   int        `json:"story_count"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Plan is one generated milestone plan.
type Plan struct {
	ID           uuid.UUID `json:"id"`
	TransitionID uuid.UUID `json:"transition_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the persistence collaborator consumed by the pipeline and the
// HTTP layer.
type Store interface {
	// CreateTransition inserts a new transition in status created.
	CreateTransition(ctx context.Context, currentRole, targetRole string) (*Transition, error)
	// GetTransition returns ErrNotFound for unknown ids.
	GetTransition(ctx context.Context, id uuid.UUID) (*Transition, error)
	// GetTransitionByRoles returns ErrNotFound when no transition exists
	// for the exact role pair. Used for idempotent creation.
	GetTransitionByRoles(ctx context.Context, currentRole, targetRole string) (*Transition, error)
	// UpdateTransitionStatus sets the status unconditionally.
	UpdateTransitionStatus(ctx context.Context, id uuid.UUID, status string) error

	// ReplaceStories overwrites the transition's story corpus and bumps
	// the stage version, returning the new version.
	ReplaceStories(ctx context.Context, id uuid.UUID, stories []types.ScrapedStory) (int, error)
	// GetStories returns the corpus and the stage version it was read at.
	GetStories(ctx context.Context, id uuid.UUID) ([]types.ScrapedStory, int, error)

	// ReplaceSkillGaps clears and rewrites the transition's skill gaps
	// (last-write-wins, no merge). The write is rejected with
	// ErrStaleStage when expectedVersion no longer matches.
	ReplaceSkillGaps(ctx context.Context, id uuid.UUID, gaps []types.SkillGapRecord, expectedVersion int) error
	// GetSkillGaps returns the gaps and the stage version read at.
	GetSkillGaps(ctx context.Context, id uuid.UUID) ([]types.SkillGapRecord, int, error)

	// CreatePlan stores a plan with its milestones and resources,
	// superseding any previous plan for the transition. Rejected with
	// ErrStaleStage when expectedVersion no longer matches.
	CreatePlan(ctx context.Context, id uuid.UUID, milestones []types.Milestone, expectedVersion int) (*Plan, error)
	// GetPlan returns the current plan and milestones, ErrNotFound when
	// none exists.
	GetPlan(ctx context.Context, transitionID uuid.UUID) (*Plan, []types.Milestone, error)

	// CreateScrapeJob inserts a pending job record.
	CreateScrapeJob(ctx context.Context, transitionID uuid.UUID) (*ScrapeJob, error)
	// UpdateScrapeJob overwrites the job's mutable fields.
	UpdateScrapeJob(ctx context.Context, job *ScrapeJob) error
	// ListScrapeJobs returns the transition's jobs, newest first.
	ListScrapeJobs(ctx context.Context, transitionID uuid.UUID) ([]ScrapeJob, error)
}

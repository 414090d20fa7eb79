package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/transition-planner/internal/types"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// CreateTransition inserts a new transition in status created.
func (p *Postgres) CreateTransition(ctx context.Context, currentRole, targetRole string) (*Transition, error) {
	var t Transition
	err := p.pool.QueryRow(ctx,
		`INSERT INTO transitions ("current_role", target_role, status, stage_version)
		 VALUES ($1, $2, 'created', 0)
		 RETURNING id, "current_role", target_role, status, stage_version, created_at, updated_at`,
		currentRole, targetRole,
	).Scan(&t.ID, &t.CurrentRole, &t.TargetRole, &t.Status, &t.StageVersion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition: %w", err)
	}
	return &t, nil
}

// GetTransition looks up a transition by id.
func (p *Postgres) GetTransition(ctx context.Context, id uuid.UUID) (*Transition, error) {
	var t Transition
	err := p.pool.QueryRow(ctx,
		`SELECT id, "current_role", target_role, status, stage_version, created_at, updated_at
		 FROM transitions WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.CurrentRole, &t.TargetRole, &t.Status, &t.StageVersion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transition: %w", err)
	}
	return &t, nil
}

// GetTransitionByRoles looks up a transition by its exact role pair,
// case-insensitively.
func (p *Postgres) GetTransitionByRoles(ctx context.Context, currentRole, targetRole string) (*Transition, error) {
	var t Transition
	err := p.pool.QueryRow(ctx,
		`SELECT id, "current_role", target_role, status, stage_version, created_at, updated_at
		 FROM transitions WHERE LOWER("current_role") = LOWER($1) AND LOWER(target_role) = LOWER($2)
		 ORDER BY created_at DESC LIMIT 1`,
		currentRole, targetRole,
	).Scan(&t.ID, &t.CurrentRole, &t.TargetRole, &t.Status, &t.StageVersion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transition by roles: %w", err)
	}
	return &t, nil
}

// UpdateTransitionStatus sets the status unconditionally.
func (p *Postgres) UpdateTransitionStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := p.pool.Exec(ctx,
		`UPDATE transitions SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update transition status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceStories overwrites the corpus and bumps the stage version inside
// one transaction.
func (p *Postgres) ReplaceStories(ctx context.Context, id uuid.UUID, stories []types.ScrapedStory) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx,
		`UPDATE transitions SET stage_version = stage_version + 1, updated_at = NOW()
		 WHERE id = $1 RETURNING stage_version`,
		id,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to bump stage version: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM scraped_stories WHERE transition_id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to clear stories: %w", err)
	}
	for _, s := range stories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO scraped_stories (transition_id, source, content, url, date)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, s.Source, s.Content, s.URL, s.Date,
		); err != nil {
			return 0, fmt.Errorf("failed to insert story: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit stories: %w", err)
	}
	return version, nil
}

// GetStories returns the corpus and the stage version it was read at.
func (p *Postgres) GetStories(ctx context.Context, id uuid.UUID) ([]types.ScrapedStory, int, error) {
	t, err := p.GetTransition(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT source, content, url, date FROM scraped_stories
		 WHERE transition_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []types.ScrapedStory
	for rows.Next() {
		var s types.ScrapedStory
		if err := rows.Scan(&s.Source, &s.Content, &s.URL, &s.Date); err != nil {
			return nil, 0, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, t.StageVersion, nil
}

// ReplaceSkillGaps clears and rewrites the skill gaps, rejecting stale
// writes via the stage version check.
func (p *Postgres) ReplaceSkillGaps(ctx context.Context, id uuid.UUID, gaps []types.SkillGapRecord, expectedVersion int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx,
		`SELECT stage_version FROM transitions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock transition: %w", err)
	}
	if version != expectedVersion {
		return ErrStaleStage
	}

	if _, err := tx.Exec(ctx, `DELETE FROM skill_gaps WHERE transition_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear skill gaps: %w", err)
	}
	for _, g := range gaps {
		if _, err := tx.Exec(ctx,
			`INSERT INTO skill_gaps (transition_id, skill_name, gap_level, confidence_score, mention_count, context_summary)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, g.SkillName, string(g.GapLevel), g.ConfidenceScore, g.MentionCount, g.ContextSummary,
		); err != nil {
			return fmt.Errorf("failed to insert skill gap: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE transitions SET stage_version = stage_version + 1, updated_at = NOW() WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to bump stage version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit skill gaps: %w", err)
	}
	return nil
}

// GetSkillGaps returns the gaps and the stage version read at.
func (p *Postgres) GetSkillGaps(ctx context.Context, id uuid.UUID) ([]types.SkillGapRecord, int, error) {
	t, err := p.GetTransition(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT skill_name, gap_level, confidence_score, mention_count, context_summary
		 FROM skill_gaps WHERE transition_id = $1 ORDER BY confidence_score DESC`,
		id,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list skill gaps: %w", err)
	}
	defer rows.Close()

	var gaps []types.SkillGapRecord
	for rows.Next() {
		var g types.SkillGapRecord
		var level string
		if err := rows.Scan(&g.SkillName, &level, &g.ConfidenceScore, &g.MentionCount, &g.ContextSummary); err != nil {
			return nil, 0, fmt.Errorf("failed to scan skill gap: %w", err)
		}
		g.GapLevel = types.GapLevel(level)
		gaps = append(gaps, g)
	}
	return gaps, t.StageVersion, nil
}

// CreatePlan stores a plan with milestone and resource rows, superseding
// any previous plan for the transition.
func (p *Postgres) CreatePlan(ctx context.Context, id uuid.UUID, milestones []types.Milestone, expectedVersion int) (*Plan, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx,
		`SELECT stage_version FROM transitions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock transition: %w", err)
	}
	if version != expectedVersion {
		return nil, ErrStaleStage
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plans WHERE transition_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear previous plan: %w", err)
	}

	var plan Plan
	err = tx.QueryRow(ctx,
		`INSERT INTO plans (transition_id) VALUES ($1)
		 RETURNING id, transition_id, created_at`,
		id,
	).Scan(&plan.ID, &plan.TransitionID, &plan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	for _, m := range milestones {
		var milestoneID uuid.UUID
		err = tx.QueryRow(ctx,
			`INSERT INTO milestones (plan_id, title, description, priority, duration_weeks, position, progress)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			plan.ID, m.Title, m.Description, string(m.Priority), m.DurationWeeks, m.Order, m.Progress,
		).Scan(&milestoneID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert milestone: %w", err)
		}
		for _, r := range m.Resources {
			if _, err := tx.Exec(ctx,
				`INSERT INTO resources (milestone_id, title, url, type) VALUES ($1, $2, $3, $4)`,
				milestoneID, r.Title, r.URL, r.Type,
			); err != nil {
				return nil, fmt.Errorf("failed to insert resource: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return &plan, nil
}

// GetPlan returns the current plan and its milestones with resources.
func (p *Postgres) GetPlan(ctx context.Context, transitionID uuid.UUID) (*Plan, []types.Milestone, error) {
	var plan Plan
	err := p.pool.QueryRow(ctx,
		`SELECT id, transition_id, created_at FROM plans WHERE transition_id = $1`,
		transitionID,
	).Scan(&plan.ID, &plan.TransitionID, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get plan: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, title, description, priority, duration_weeks, position, progress
		 FROM milestones WHERE plan_id = $1 ORDER BY position`,
		plan.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []types.Milestone
	var milestoneIDs []uuid.UUID
	for rows.Next() {
		var m types.Milestone
		var mid uuid.UUID
		var priority string
		if err := rows.Scan(&mid, &m.Title, &m.Description, &priority, &m.DurationWeeks, &m.Order, &m.Progress); err != nil {
			return nil, nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		m.Priority = types.Priority(priority)
		milestones = append(milestones, m)
		milestoneIDs = append(milestoneIDs, mid)
	}
	rows.Close()

	for i, mid := range milestoneIDs {
		resources, err := p.listResources(ctx, mid)
		if err != nil {
			return nil, nil, err
		}
		milestones[i].Resources = resources
	}

	return &plan, milestones, nil
}

func (p *Postgres) listResources(ctx context.Context, milestoneID uuid.UUID) ([]types.Resource, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT title, url, type FROM resources WHERE milestone_id = $1 ORDER BY id`,
		milestoneID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []types.Resource
	for rows.Next() {
		var r types.Resource
		if err := rows.Scan(&r.Title, &r.URL, &r.Type); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// CreateScrapeJob inserts a pending job record.
func (p *Postgres) CreateScrapeJob(ctx context.Context, transitionID uuid.UUID) (*ScrapeJob, error) {
	var job ScrapeJob
	err := p.pool.QueryRow(ctx,
		`INSERT INTO scrape_jobs (transition_id, status) VALUES ($1, 'pending')
		 RETURNING id, transition_id, status, COALESCE(error, ''), story_count, created_at, started_at, finished_at`,
		transitionID,
	).Scan(&job.ID, &job.TransitionID, &job.Status, &job.Error, &job.StoryCount, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape job: %w", err)
	}
	return &job, nil
}

// UpdateScrapeJob overwrites the job's mutable fields.
func (p *Postgres) UpdateScrapeJob(ctx context.Context, job *ScrapeJob) error {
	result, err := p.pool.Exec(ctx,
		`UPDATE scrape_jobs SET status = $1, error = NULLIF($2, ''), story_count = $3,
		 started_at = $4, finished_at = $5 WHERE id = $6`,
		job.Status, job.Error, job.StoryCount, job.StartedAt, job.FinishedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update scrape job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListScrapeJobs returns the transition's jobs, newest first.
func (p *Postgres) ListScrapeJobs(ctx context.Context, transitionID uuid.UUID) ([]ScrapeJob, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, transition_id, status, COALESCE(error, ''), story_count, created_at, started_at, finished_at
		 FROM scrape_jobs WHERE transition_id = $1 ORDER BY created_at DESC`,
		transitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ScrapeJob
	for rows.Next() {
		var job ScrapeJob
		if err := rows.Scan(&job.ID, &job.TransitionID, &job.Status, &job.Error, &job.StoryCount, &job.CreatedAt, &job.StartedAt, &job.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrape job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

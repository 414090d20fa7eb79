package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/transition-planner/internal/types"
)

// Memory is an in-memory Store used by tests and local development. Safe
// for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	transitions map[uuid.UUID]*Transition
	stories     map[uuid.UUID][]types.ScrapedStory
	gaps        map[uuid.UUID][]types.SkillGapRecord
	plans       map[uuid.UUID]*Plan
	milestones  map[uuid.UUID][]types.Milestone
	jobs        map[uuid.UUID][]ScrapeJob
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transitions: make(map[uuid.UUID]*Transition),
		stories:     make(map[uuid.UUID][]types.ScrapedStory),
		gaps:        make(map[uuid.UUID][]types.SkillGapRecord),
		plans:       make(map[uuid.UUID]*Plan),
		milestones:  make(map[uuid.UUID][]types.Milestone),
		jobs:        make(map[uuid.UUID][]ScrapeJob),
	}
}

// CreateTransition inserts a new transition in status created.
func (m *Memory) CreateTransition(_ context.Context, currentRole, targetRole string) (*Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	t := &Transition{
		ID:          uuid.New(),
		CurrentRole: currentRole,
		TargetRole:  targetRole,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.transitions[t.ID] = t
	copied := *t
	return &copied, nil
}

// GetTransition looks up a transition by id.
func (m *Memory) GetTransition(_ context.Context, id uuid.UUID) (*Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transitions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

// GetTransitionByRoles looks up a transition by its exact role pair,
// case-insensitively.
func (m *Memory) GetTransitionByRoles(_ context.Context, currentRole, targetRole string) (*Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.transitions {
		if strings.EqualFold(t.CurrentRole, currentRole) && strings.EqualFold(t.TargetRole, targetRole) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateTransitionStatus sets the status unconditionally.
func (m *Memory) UpdateTransitionStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

// ReplaceStories overwrites the corpus and bumps the stage version.
func (m *Memory) ReplaceStories(_ context.Context, id uuid.UUID, stories []types.ScrapedStory) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[id]
	if !ok {
		return 0, ErrNotFound
	}
	m.stories[id] = append([]types.ScrapedStory(nil), stories...)
	t.StageVersion++
	t.UpdatedAt = time.Now()
	return t.StageVersion, nil
}

// GetStories returns the corpus and the stage version it was read at.
func (m *Memory) GetStories(_ context.Context, id uuid.UUID) ([]types.ScrapedStory, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transitions[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return append([]types.ScrapedStory(nil), m.stories[id]...), t.StageVersion, nil
}

// ReplaceSkillGaps clears and rewrites the skill gaps, rejecting stale
// writes.
func (m *Memory) ReplaceSkillGaps(_ context.Context, id uuid.UUID, gaps []types.SkillGapRecord, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[id]
	if !ok {
		return ErrNotFound
	}
	if t.StageVersion != expectedVersion {
		return ErrStaleStage
	}
	m.gaps[id] = append([]types.SkillGapRecord(nil), gaps...)
	t.StageVersion++
	t.UpdatedAt = time.Now()
	return nil
}

// GetSkillGaps returns the gaps and the stage version read at.
func (m *Memory) GetSkillGaps(_ context.Context, id uuid.UUID) ([]types.SkillGapRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transitions[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return append([]types.SkillGapRecord(nil), m.gaps[id]...), t.StageVersion, nil
}

// CreatePlan stores a plan, superseding any previous one.
func (m *Memory) CreatePlan(_ context.Context, id uuid.UUID, milestones []types.Milestone, expectedVersion int) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.StageVersion != expectedVersion {
		return nil, ErrStaleStage
	}

	p := &Plan{ID: uuid.New(), TransitionID: id, CreatedAt: time.Now()}
	m.plans[id] = p
	m.milestones[id] = append([]types.Milestone(nil), milestones...)
	t.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

// GetPlan returns the current plan and its milestones.
func (m *Memory) GetPlan(_ context.Context, transitionID uuid.UUID) (*Plan, []types.Milestone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[transitionID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	copied := *p
	return &copied, append([]types.Milestone(nil), m.milestones[transitionID]...), nil
}

// CreateScrapeJob inserts a pending job record.
func (m *Memory) CreateScrapeJob(_ context.Context, transitionID uuid.UUID) (*ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[transitionID]; !ok {
		return nil, ErrNotFound
	}
	job := ScrapeJob{
		ID:           uuid.New(),
		TransitionID: transitionID,
		Status:       JobPending,
		CreatedAt:    time.Now(),
	}
	m.jobs[transitionID] = append(m.jobs[transitionID], job)
	return &job, nil
}

// UpdateScrapeJob overwrites the job's mutable fields.
func (m *Memory) UpdateScrapeJob(_ context.Context, job *ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := m.jobs[job.TransitionID]
	for i := range jobs {
		if jobs[i].ID == job.ID {
			jobs[i] = *job
			return nil
		}
	}
	return ErrNotFound
}

// ListScrapeJobs returns the transition's jobs, newest first.
func (m *Memory) ListScrapeJobs(_ context.Context, transitionID uuid.UUID) ([]ScrapeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.transitions[transitionID]; !ok {
		return nil, ErrNotFound
	}
	jobs := append([]ScrapeJob(nil), m.jobs[transitionID]...)
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// createTransitionRequest is the body for POST /transitions.
type createTransitionRequest struct {
	CurrentRole string `json:"current_role" validate:"required,min=2,max=200"`
	TargetRole  string `json:"target_role" validate:"required,min=2,max=200"`
}

// analyzeRequest is the optional body for POST /transitions/{id}/analyze.
type analyzeRequest struct {
	KnownSkills []string `json:"known_skills" validate:"omitempty,max=100,dive,min=1,max=200"`
}

// handleCreateTransition creates a transition and starts its first scrape.
// Idempotent on the role pair: an existing transition returns 200 with its
// id instead of creating a duplicate.
func (s *Server) handleCreateTransition(w http.ResponseWriter, r *http.Request) {
	var req createTransitionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	t, created, err := s.pipeline.Start(r.Context(), req.CurrentRole, req.TargetRole)
	if err != nil {
		s.handlerError(w, "create transition", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, map[string]any{
		"transition_id": t.ID,
		"status":        t.Status,
		"created":       created,
	})
}

// handleGetTransition returns the transition record.
func (s *Server) handleGetTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	d, err := s.pipeline.GetDashboard(r.Context(), id)
	if err != nil {
		s.handlerError(w, "get transition", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, d.Transition)
}

// handleScrape starts a detached scrape job and returns 202 with its id.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	job, err := s.pipeline.StartScrape(r.Context(), id)
	if err != nil {
		s.handlerError(w, "start scrape", err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"job_id":   job.ID,
	})
}

// handleAnalyze runs skill-gap analysis synchronously.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if r.ContentLength > 0 {
		if err := s.decodeAndValidate(r, &req); err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
	}

	count, err := s.pipeline.Analyze(r.Context(), id, req.KnownSkills)
	if err != nil {
		s.handlerError(w, "analyze", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"accepted":        true,
		"skill_gap_count": count,
	})
}

// handlePlan generates the milestone plan synchronously.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	plan, milestoneCount, err := s.pipeline.Plan(r.Context(), id)
	if err != nil {
		s.handlerError(w, "plan", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"plan_id":         plan.ID,
		"milestone_count": milestoneCount,
	})
}

// handleInsights computes the overview statistics on demand.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	overview, err := s.pipeline.Overview(r.Context(), id)
	if err != nil {
		s.handlerError(w, "insights", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, overview)
}

// handleStoriesAnalysis synthesizes the narrative insights on demand.
func (s *Server) handleStoriesAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	insights, err := s.pipeline.Insights(r.Context(), id)
	if err != nil {
		s.handlerError(w, "stories analysis", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, insights)
}

// handleDashboard returns the stored aggregate view without computation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	d, err := s.pipeline.GetDashboard(r.Context(), id)
	if err != nil {
		s.handlerError(w, "dashboard", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, d)
}

// handleListJobs returns the transition's scrape jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	jobs, err := s.pipeline.Jobs(r.Context(), id)
	if err != nil {
		s.handlerError(w, "list jobs", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// pathID parses the {id} path segment, writing a 400 on failure.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid transition id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes a JSON body and runs struct validation,
// returning *ErrValidation for client errors.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is required"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}

	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ErrValidation{Field: fe.Field(), Message: "failed " + fe.Tag() + " validation"}
		}
		return err
	}
	return nil
}

// handlerError maps an error to a status and logs server-side causes.
func (s *Server) handlerError(w http.ResponseWriter, op string, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] %s: %v", op, err)
	}
	s.errorResponse(w, status, err.Error())
}

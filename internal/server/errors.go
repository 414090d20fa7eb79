// Package server provides the HTTP REST API for the transition planner.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/pipeline"
	"github.com/jonathan/transition-planner/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Upstream model failures and parse dead-ends surface as 502: the service
// is fine, the model output was not.
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var upstreamErr *llm.UpstreamError
	var parseErr *analysis.ParseError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStaleStage):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrNoStories), errors.Is(err, pipeline.ErrNoSkillGaps):
		return http.StatusConflict
	case errors.As(err, &upstreamErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

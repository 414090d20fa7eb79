package analysis

import "fmt"

// ParseError means the search call succeeded but no parse strategy could
// read the response. Distinct from llm.UpstreamError: the service answered,
// the answer was unusable.
type ParseError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s parse error: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s parse error: %s", e.Stage, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Package schemas provides JSON Schema checks for the structured arrays
// parsed out of LLM responses. Checks are advisory: a schema mismatch is
// reported as field-level findings, never as a hard failure, because the
// per-field defaulting rules downstream repair what the schema flags.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed defs/*.schema.json
var schemaFiles embed.FS

// Known schema names.
const (
	SkillGaps  = "skill_gaps"
	Milestones = "milestones"
)

// Finding is one schema mismatch at a specific field path.
type Finding struct {
	Field   string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// SchemaLoadError represents errors loading or parsing the schema itself.
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Check validates jsonContent against the named embedded schema and returns
// the findings. An empty slice means the document conforms. Only schema
// loading problems return an error.
func Check(name, jsonContent string) ([]Finding, error) {
	schemaBytes, err := schemaFiles.ReadFile("defs/" + name + ".schema.json")
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "unknown schema", Cause: err}
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "validation failed during load", Cause: err}
	}

	if result.Valid() {
		return nil, nil
	}

	findings := make([]Finding, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == "(root)" {
			field = "(root)"
		}
		findings = append(findings, Finding{Field: field, Message: desc.Description()})
	}
	return findings, nil
}

// Summarize renders findings as one log-friendly line.
func Summarize(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}
	parts := make([]string, len(findings))
	for i, f := range findings {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConformingSkillGaps(t *testing.T) {
	doc := `[{"skill_name": "Python", "gap_level": "High", "confidence_score": 90, "mention_count": 3, "context_summary": "s"}]`

	findings, err := Check(SkillGaps, doc)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckReportsFindingsWithoutFailing(t *testing.T) {
	// Missing required skill_name and a wrong-typed confidence: both are
	// findings, neither is an error.
	doc := `[{"gap_level": "High", "confidence_score": "ninety"}]`

	findings, err := Check(SkillGaps, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, findings)
	assert.NotEmpty(t, Summarize(findings))
}

func TestCheckConformingMilestones(t *testing.T) {
	doc := `[{"title": "Learn Python", "priority": "High", "duration_weeks": 4, "order": 1, "resources": []}]`

	findings, err := Check(Milestones, doc)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckUnknownSchema(t *testing.T) {
	_, err := Check("nonexistent", `[]`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "nonexistent", loadErr.Name)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, "", Summarize(nil))
}

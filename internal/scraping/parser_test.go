package scraping

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transition-planner/internal/dates"
	"github.com/jonathan/transition-planner/internal/types"
)

func testParser() *Parser {
	return NewParser(dates.Normalizer{
		Now: func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
	})
}

// longContent is comfortably over the 50-char noise threshold.
const longContent = "I spent two years moving from accounting into data engineering, starting with evening SQL courses."

func TestParseJSONArray(t *testing.T) {
	raw := "```json\n" + `[
		{"source": "reddit", "content": "` + longContent + `", "url": "https://reddit.com/r/cscareers/1", "date": "2 months ago"},
		{"source": "blog", "content": "` + longContent + `", "url": "", "date": "March 7, 2024"}
	]` + "\n```"

	stories := testParser().Parse(raw)
	require.Len(t, stories, 2)

	assert.Equal(t, "reddit", stories[0].Source)
	assert.Equal(t, "2025-04-15", stories[0].Date)

	assert.Equal(t, types.NotProvided, stories[1].URL)
	assert.Equal(t, "2024-03-07", stories[1].Date)
}

func TestParseJSONArrayWinsOverLaterTiers(t *testing.T) {
	// Valid JSON followed by Source: labels; only tier 1 output appears.
	raw := `[{"source": "json-source", "content": "` + longContent + `", "url": "https://a.example", "date": "2024-01-01"}]

Source: label-source
URL: https://b.example
Content: ` + longContent

	stories := testParser().Parse(raw)
	require.Len(t, stories, 1)
	assert.Equal(t, "json-source", stories[0].Source)
}

func TestParseDelimitedBlocks(t *testing.T) {
	raw := "Some preamble.\n```\nSource: Hacker News\nURL: https://news.ycombinator.com/item?id=1\nDate: 2023-11-02\nContent: " + longContent + "\n```\n```\nSource: forum\nDate: 1 year ago\nContent: " + longContent + "\n```"

	stories := testParser().Parse(raw)
	require.Len(t, stories, 2)
	assert.Equal(t, "Hacker News", stories[0].Source)
	assert.Equal(t, "2023-11-02", stories[0].Date)
	assert.Equal(t, types.NotProvided, stories[1].URL)
	assert.Equal(t, "2024-06-15", stories[1].Date)
}

func TestParseLegacySourceSplit(t *testing.T) {
	raw := `Found these accounts:

Source: reddit
URL: https://reddit.com/1
` + longContent + `

Source: medium
Date: 2022/5/3
` + longContent

	stories := testParser().Parse(raw)
	require.Len(t, stories, 2)
	assert.Equal(t, "reddit", stories[0].Source)
	assert.Equal(t, "medium", stories[1].Source)
	assert.Equal(t, "2022-05-03", stories[1].Date)
}

func TestParseNoiseFilter(t *testing.T) {
	shortContent := strings.Repeat("x", 40)
	boundaryContent := strings.Repeat("x", 50) // at threshold, still dropped
	justOverContent := strings.Repeat("x", 51)

	raw := `[
		{"source": "a", "content": "` + shortContent + `", "url": "https://a.example"},
		{"source": "b", "content": "` + boundaryContent + `", "url": "https://b.example"},
		{"source": "c", "content": "` + justOverContent + `", "url": "https://c.example"}
	]`

	stories := testParser().Parse(raw)
	require.Len(t, stories, 1)
	assert.Equal(t, "c", stories[0].Source)
}

func TestParseProvenanceRequired(t *testing.T) {
	// No URL and no date: fabrication guard drops the record.
	raw := `[{"source": "somewhere", "content": "` + longContent + `"}]`
	assert.Empty(t, testParser().Parse(raw))

	// Date alone satisfies provenance.
	raw = `[{"source": "somewhere", "content": "` + longContent + `", "date": "2024-01-01"}]`
	assert.Len(t, testParser().Parse(raw), 1)
}

func TestParseFallsThroughEmptyJSONArray(t *testing.T) {
	// The JSON tier recognizes the array but accepts nothing, so the
	// legacy tier gets its chance.
	raw := `[]

Source: reddit
URL: https://reddit.com/1
Content: ` + longContent

	stories := testParser().Parse(raw)
	require.Len(t, stories, 1)
	assert.Equal(t, "reddit", stories[0].Source)
}

func TestParseNothingUsable(t *testing.T) {
	assert.Nil(t, testParser().Parse("I could not find any transition stories for this role pair."))
	assert.Nil(t, testParser().Parse(""))
}

func TestExtractBlockContentAfterLabel(t *testing.T) {
	block := "Source: reddit\nURL: https://reddit.com/1\nContent: first line\nsecond line\nthird line"

	story := extractBlock(block)
	assert.Equal(t, "reddit", story.Source)
	assert.Equal(t, "first line\nsecond line\nthird line", story.Content)
}

func TestExtractBlockWithoutContentLabel(t *testing.T) {
	block := "Source: reddit\nDate: 2024-01-01\nA story told without any content label.\nIt keeps going."

	story := extractBlock(block)
	assert.Equal(t, "reddit", story.Source)
	assert.Equal(t, "A story told without any content label.\nIt keeps going.", story.Content)
}

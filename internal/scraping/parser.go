// Package scraping extracts structured transition stories from the raw,
// unpredictably-formatted text returned by the search model. The upstream
// output format has changed across prompt revisions and cannot be fixed by
// the caller, so parsing runs an ordered list of strategies and stops at the
// first one that yields at least one accepted record.
package scraping

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jonathan/transition-planner/internal/dates"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/types"
)

// minContentLength is the noise filter: candidate stories with trimmed
// content at or below this length are dropped.
const minContentLength = 50

// strategy is one way of reading a raw response. ok reports whether the
// strategy's format was recognized at all; stories holds only accepted
// records.
type strategy interface {
	name() string
	parse(raw string, norm dates.Normalizer) (stories []types.ScrapedStory, ok bool)
}

// Parser turns one raw search response into accepted story records.
type Parser struct {
	Normalizer dates.Normalizer

	strategies []strategy
}

// NewParser returns a parser with the full fallback chain: JSON array
// extraction, then code-fence delimited blocks, then legacy Source: splits.
func NewParser(norm dates.Normalizer) *Parser {
	return &Parser{
		Normalizer: norm,
		strategies: []strategy{
			jsonArrayStrategy{},
			delimitedBlockStrategy{},
			legacySplitStrategy{},
		},
	}
}

// Parse runs the strategies in order and returns the output of the first
// one producing at least one accepted record. Candidates failing the
// acceptance filter are dropped silently; partial extraction is expected
// and tolerated. A nil slice means no strategy succeeded.
func (p *Parser) Parse(raw string) []types.ScrapedStory {
	for _, s := range p.strategies {
		if stories, ok := s.parse(raw, p.Normalizer); ok && len(stories) > 0 {
			return stories
		}
	}
	return nil
}

// accept applies the per-record filter: non-empty source, content longer
// than the noise threshold, and at least one of url/date present (guards
// against fabricated or placeholder entries).
func accept(s types.ScrapedStory) bool {
	if strings.TrimSpace(s.Source) == "" {
		return false
	}
	if len(strings.TrimSpace(s.Content)) <= minContentLength {
		return false
	}
	return s.HasProvenance()
}

// finalize trims fields, substitutes sentinels, and normalizes the date.
func finalize(s types.ScrapedStory, norm dates.Normalizer) types.ScrapedStory {
	s.Source = strings.TrimSpace(s.Source)
	s.Content = strings.TrimSpace(s.Content)
	s.URL = strings.TrimSpace(s.URL)
	s.Date = strings.TrimSpace(s.Date)
	if s.URL == "" {
		s.URL = types.NotProvided
	}
	if s.Date == "" {
		s.Date = types.NotProvided
	} else if s.Date != types.NotProvided {
		s.Date = norm.Normalize(s.Date)
	}
	return s
}

// --- tier 1: structured-block extraction ---

type jsonArrayStrategy struct{}

func (jsonArrayStrategy) name() string { return "json-array" }

func (jsonArrayStrategy) parse(raw string, norm dates.Normalizer) ([]types.ScrapedStory, bool) {
	arrayText := llm.ExtractJSONArray(llm.CleanJSONBlock(raw))
	if arrayText == "" {
		return nil, false
	}

	var candidates []types.ScrapedStory
	if err := json.Unmarshal([]byte(arrayText), &candidates); err != nil {
		return nil, false
	}

	var stories []types.ScrapedStory
	for _, c := range candidates {
		story := finalize(c, norm)
		if accept(story) {
			stories = append(stories, story)
		}
	}
	return stories, true
}

// --- tier 2: delimited-block extraction ---

var fenceRe = regexp.MustCompile("```[a-zA-Z]*")

type delimitedBlockStrategy struct{}

func (delimitedBlockStrategy) name() string { return "delimited-blocks" }

func (delimitedBlockStrategy) parse(raw string, norm dates.Normalizer) ([]types.ScrapedStory, bool) {
	blocks := fenceRe.Split(raw, -1)
	if len(blocks) < 2 {
		return nil, false
	}

	var stories []types.ScrapedStory
	for _, block := range blocks {
		if !hasStoryMarkers(block) {
			continue
		}
		story := finalize(extractBlock(block), norm)
		if accept(story) {
			stories = append(stories, story)
		}
	}
	return stories, len(stories) > 0
}

// hasStoryMarkers requires a Source label plus either a URL or Date label
// before a block is treated as a candidate.
func hasStoryMarkers(block string) bool {
	lower := strings.ToLower(block)
	if !strings.Contains(lower, "source:") {
		return false
	}
	return strings.Contains(lower, "url:") || strings.Contains(lower, "date:")
}

// --- tier 3: legacy splitting ---

var sourceSplitRe = regexp.MustCompile(`(?m)^\s*(?:Source|SOURCE):`)

type legacySplitStrategy struct{}

func (legacySplitStrategy) name() string { return "legacy-split" }

func (legacySplitStrategy) parse(raw string, norm dates.Normalizer) ([]types.ScrapedStory, bool) {
	parts := sourceSplitRe.Split(raw, -1)
	if len(parts) < 2 {
		return nil, false
	}

	var stories []types.ScrapedStory
	// parts[0] is whatever preceded the first Source: label; skip it.
	for _, part := range parts[1:] {
		story := finalize(extractBlock("Source:"+part), norm)
		if accept(story) {
			stories = append(stories, story)
		}
	}
	return stories, len(stories) > 0
}

// --- shared per-block field extraction ---

var labelRe = regexp.MustCompile(`(?i)^\s*(source|url|date|content)\s*:\s*(.*)$`)

// extractBlock pulls Source/URL/Date/Content out of one text block via
// line-anchored label matching. Content is everything after the Content:
// label; if that label is absent, every line after the metadata lines.
func extractBlock(block string) types.ScrapedStory {
	var story types.ScrapedStory
	var contentLines []string
	inContent := false

	for _, line := range strings.Split(block, "\n") {
		if inContent {
			contentLines = append(contentLines, line)
			continue
		}

		m := labelRe.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				contentLines = append(contentLines, line)
			}
			continue
		}

		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "source":
			story.Source = value
		case "url":
			story.URL = value
		case "date":
			story.Date = value
		case "content":
			// Label value plus all following lines.
			contentLines = contentLines[:0]
			if value != "" {
				contentLines = append(contentLines, value)
			}
			inContent = true
		}
	}

	story.Content = strings.TrimSpace(strings.Join(contentLines, "\n"))
	return story
}

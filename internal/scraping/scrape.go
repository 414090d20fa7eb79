package scraping

import (
	"context"
	"log"

	"github.com/jonathan/transition-planner/internal/fetch"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/prompts"
	"github.com/jonathan/transition-planner/internal/types"
)

// Scraper runs one story-search round trip: prompt the search model, parse
// whatever comes back, optionally verify story links.
type Scraper struct {
	client    llm.SearchClient
	parser    *Parser
	verifier  *fetch.Verifier // nil disables link verification
	maxTokens int
}

// NewScraper creates a scraper. verifier may be nil to skip link checks.
func NewScraper(client llm.SearchClient, parser *Parser, verifier *fetch.Verifier, maxTokens int) *Scraper {
	return &Scraper{
		client:    client,
		parser:    parser,
		verifier:  verifier,
		maxTokens: maxTokens,
	}
}

// Scrape searches for transition accounts and returns the accepted stories.
// A response that parses to zero stories is not an error: partial or empty
// extraction is expected. Only upstream failures propagate.
func (s *Scraper) Scrape(ctx context.Context, currentRole, targetRole string) ([]types.ScrapedStory, error) {
	template := prompts.MustGet("scraping.json", "search-stories")
	prompt := prompts.Format(template, map[string]string{
		"CurrentRole": currentRole,
		"TargetRole":  targetRole,
	})

	raw, err := s.client.Search(ctx, prompt, s.maxTokens, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	stories := s.parser.Parse(raw)
	if s.verifier != nil {
		s.annotate(ctx, stories)
	}
	return stories, nil
}

// annotate checks each story link and logs unreachable ones. Verification
// is advisory: a dead link never drops an accepted story.
func (s *Scraper) annotate(ctx context.Context, stories []types.ScrapedStory) {
	for _, story := range stories {
		if story.URL == types.NotProvided {
			continue
		}
		if _, err := s.verifier.PageTitle(ctx, story.URL); err != nil {
			log.Printf("[scrape] story link unreachable: %s: %v", story.URL, err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/transition-planner/internal/analysis"
	"github.com/jonathan/transition-planner/internal/config"
	"github.com/jonathan/transition-planner/internal/dates"
	"github.com/jonathan/transition-planner/internal/fetch"
	"github.com/jonathan/transition-planner/internal/llm"
	"github.com/jonathan/transition-planner/internal/pipeline"
	"github.com/jonathan/transition-planner/internal/planning"
	"github.com/jonathan/transition-planner/internal/scraping"
	"github.com/jonathan/transition-planner/internal/store"
)

// pipelineDeps bundles the wired orchestrator with its cleanup.
type pipelineDeps struct {
	orchestrator *pipeline.Orchestrator
	close        func()
}

// buildPipeline constructs the full stage pipeline from configuration.
// An empty DatabaseURL selects the in-memory store, useful for local runs.
func buildPipeline(ctx context.Context, cfg config.Config) (*pipelineDeps, error) {
	llmCfg := llm.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		llmCfg.MaxAttempts = cfg.MaxAttempts
	}

	client, err := llm.NewGeminiClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	var st store.Store
	var closeStore func()
	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		st = pg
		closeStore = pg.Close
	} else {
		log.Println("[serve] DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
		closeStore = func() {}
	}

	var verifier *fetch.Verifier
	if cfg.VerifyLinks {
		verifier = fetch.NewVerifier(15 * time.Second)
	}

	parser := scraping.NewParser(dates.Normalizer{DayFirst: cfg.DayFirstDates})
	scraper := scraping.NewScraper(client, parser, verifier, cfg.SearchMaxTokens)
	gaps := analysis.NewGapAnalyzer(client, cfg.SearchMaxTokens)
	overview := analysis.NewOverviewAggregator(client, cfg.SearchMaxTokens)
	insights := analysis.NewInsightSynthesizer(client, cfg.SearchMaxTokens)
	planner := planning.NewGenerator(client, cfg.SearchMaxTokens, cfg.DefaultDurationWeeks)

	orch := pipeline.New(st, scraper, gaps, overview, insights, planner, scrapeTimeout(cfg))

	return &pipelineDeps{
		orchestrator: orch,
		close: func() {
			if err := client.Close(); err != nil {
				log.Printf("[serve] failed to close search client: %v", err)
			}
			closeStore()
		},
	}, nil
}

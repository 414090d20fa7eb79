package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/transition-planner/internal/pipeline"
	"github.com/jonathan/transition-planner/internal/store"
)

var (
	runCurrentRole string
	runTargetRole  string
	runKnownSkills string
	runConfigPath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once from the command line",
	Long:  `Scrape transition stories for a role pair, analyze skill gaps, and generate a milestone plan, printing the resulting dashboard as JSON. Uses the in-memory store; nothing is persisted.`,
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runCurrentRole, "current-role", "", "Current role (required)")
	runCmd.Flags().StringVar(&runTargetRole, "target-role", "", "Target role (required)")
	runCmd.Flags().StringVar(&runKnownSkills, "skills", "", "Comma-separated skills the candidate already has")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to JSON config file")
	_ = runCmd.MarkFlagRequired("current-role")
	_ = runCmd.MarkFlagRequired("target-role")
	rootCmd.AddCommand(runCmd)
}

func runOnce(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	cfg.DatabaseURL = "" // one-shot runs never persist
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	deps, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	orch := deps.orchestrator

	t, _, err := orch.Start(ctx, runCurrentRole, runTargetRole)
	if err != nil {
		return fmt.Errorf("failed to start transition: %w", err)
	}

	if err := waitForScrape(ctx, orch, t.ID, scrapeTimeout(cfg)); err != nil {
		return err
	}

	var knownSkills []string
	for _, s := range strings.Split(runKnownSkills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			knownSkills = append(knownSkills, s)
		}
	}

	gapCount, err := orch.Analyze(ctx, t.ID, knownSkills)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "analyzed %d skill gaps\n", gapCount)

	if _, _, err := orch.Plan(ctx, t.ID); err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	dashboard, err := orch.GetDashboard(ctx, t.ID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(dashboard)
}

// waitForScrape polls the newest scrape job until it finishes.
func waitForScrape(ctx context.Context, orch *pipeline.Orchestrator, id uuid.UUID, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		jobs, err := orch.Jobs(ctx, id)
		if err != nil {
			return err
		}
		if len(jobs) > 0 {
			switch jobs[0].Status {
			case store.JobSucceeded:
				fmt.Fprintf(os.Stderr, "scraped %d stories\n", jobs[0].StoryCount)
				return nil
			case store.JobFailed:
				return fmt.Errorf("scrape failed: %s", jobs[0].Error)
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("scrape did not finish within %s", timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

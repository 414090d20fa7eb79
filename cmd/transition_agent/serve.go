package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/transition-planner/internal/config"
	"github.com/jonathan/transition-planner/internal/server"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for creating transitions and running the scrape/analyze/plan pipeline.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	deps, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{Port: cfg.Port}, deps.orchestrator)
	srv.OnShutdown(deps.close)
	return srv.Start()
}

// loadConfig merges file, defaults, and environment. The file is optional.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg.MergeWithDefaults(config.Defaults())
	}
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func scrapeTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.ScrapeTimeoutSeconds) * time.Second
}

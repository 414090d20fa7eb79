// Package main provides the entry point for the Transition Planner HTTP API
// server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "transition_agent",
	Short: "Career Transition Planner API Server",
	Long:  "Transition Planner scrapes real career-change stories, extracts skill gaps and transition statistics, and generates milestone learning plans via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

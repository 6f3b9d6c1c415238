// Package main provides the CLI entry point for the policydesk query
// engine.
//
// Policydesk answers workplace policy questions by routing them to
// specialized retrieval-augmented responders (HR policy, IT policy,
// general research), running them concurrently, and merging their
// answers with a trustworthiness score attached.
//
// # Basic Usage
//
// Ask a question:
//
//	policydesk query "What is the leave policy?"
//
// List the available responders:
//
//	policydesk responders
//
// Serve Prometheus metrics:
//
//	policydesk serve-metrics
//
// # Environment Variables
//
//   - POLICYDESK_CONFIG: path to the configuration file (default: policydesk.yaml)
//   - POLICYDESK_LLM_API_KEY: generation backend API key
//   - POLICYDESK_LLM_PROVIDER: "openai" or "anthropic"
//   - POLICYDESK_QDRANT_HOST / POLICYDESK_QDRANT_PORT: vector store address
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "policydesk",
		Short: "Policydesk - multi-responder policy question answering",
		Long: `Policydesk routes workplace policy questions to specialized
retrieval-augmented responders, runs them concurrently, and merges
their answers into one response with a confidence assessment.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(),
		"Path to YAML configuration file")

	rootCmd.AddCommand(
		buildQueryCmd(&configPath),
		buildRespondersCmd(),
		buildEvaluateCmd(&configPath),
		buildServeMetricsCmd(&configPath),
	)
	return rootCmd
}

func defaultConfigPath() string {
	if p := os.Getenv("POLICYDESK_CONFIG"); p != "" {
		return p
	}
	return "policydesk.yaml"
}

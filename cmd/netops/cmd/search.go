package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/pkg/defaults"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/runbooks"
)

var (
	searchQuery string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search runbooks by text similarity",
	Long: `Rank runbooks against a free-text query.

Examples:
  netops search --query "interface down"
  netops search --query "packet loss" --limit 1 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchQuery, "query", "", "Search query (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", defaults.SearchLimit, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")

	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(_ *cobra.Command, _ []string) error {
	suppressLogs()

	cfg, err := loadConfigOrDefaults(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry, err := runbooks.NewRegistry(log, cfg.Runbooks.Path)
	if err != nil {
		return err
	}

	idx, err := index.Build(registry.All())
	if err != nil {
		return fmt.Errorf("building runbook index: %w", err)
	}

	matches, err := idx.Query(searchQuery, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON || !isTerminal() {
		return outputJSON(matches)
	}

	for i, m := range matches {
		if i > 0 {
			fmt.Println()
		}

		fmt.Printf("## %s (%.0f%% match)\n", m.Runbook.Title, m.Score*100)
		fmt.Printf("ID: %s | Category: %s\n", m.Runbook.ID, m.Runbook.Category)

		if len(m.Runbook.Commands) > 0 {
			fmt.Printf("\n%s\n", strings.Join(m.Runbook.Commands, "\n"))
		}
	}

	return nil
}

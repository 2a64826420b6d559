// Package main provides the entry point for the biblioscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for biblioscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biblioscan",
		Short: "Harvest book files from the web into a managed collection",
		Long: `biblioscan crawls web sites for book files (PDF, EPUB), stores them in
a directory-backed collection with content-based deduplication, and
generates catalog reports from the books' embedded metadata.

Typical workflow:
  biblioscan crawl https://books.example.com/   # harvest a site
  biblioscan report --kind authors              # browse what you got`,
		Version:       rootVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

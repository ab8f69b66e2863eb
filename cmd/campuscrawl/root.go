package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for campuscrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campuscrawl",
		Short: "Polite, restartable crawler for academic websites",
		Long: `campuscrawl crawls the UCI academic domains (ics, cs, informatics and stat).

It runs a fixed pool of workers, each owning one host at a time, skips
crawler traps and near-duplicate pages, and records word statistics for a
final report. Crawl state lives in a SQLite database, so an interrupted
crawl resumes where it stopped unless --restart is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
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

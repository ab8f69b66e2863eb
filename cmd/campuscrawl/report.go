package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/campuscrawl/internal/config"
	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/report"
)

// reportOptions holds the report command flags.
type reportOptions struct {
	dbDir     string
	top       int
	subdomain string
	json      bool
	markdown  bool
	runs      bool
	output    string
	quiet     bool
}

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the crawl database",
		Long: `Report reads campuscrawl.db and prints:
- The number of discovered, completed and unique pages
- The longest page by word count
- The most frequent words, stop-words excluded
- Completed pages per subdomain of ics.uci.edu
- The crawl run history (--runs)

Examples:
  # Human-readable report of the default database
  campuscrawl report

  # Top 100 words as Markdown, written to a file
  campuscrawl report --top 100 --markdown -o report.md

  # JSON for further processing
  campuscrawl report --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Directory of campuscrawl.db (default: XDG data directory)")
	cmd.Flags().IntP("top", "n", report.DefaultTopWords,
		"Number of words in the frequency ranking")
	cmd.Flags().String("subdomain", report.DefaultSubdomainSuffix,
		"Host whose subdomains are counted")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("runs", false,
		"Include the run history in the text report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not echo the text report to stdout when --output is set")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	opts, err := reportOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	return runReport(cmd.Context(), opts, cmd.OutOrStdout())
}

// reportOptionsFromFlags reads the report flags.
func reportOptionsFromFlags(cmd *cobra.Command) (reportOptions, error) {
	var opts reportOptions
	var err error
	fs := cmd.Flags()

	if opts.dbDir, err = fs.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if opts.top, err = fs.GetInt("top"); err != nil {
		return opts, err
	}
	if opts.top <= 0 {
		return opts, fmt.Errorf("invalid --top %d: must be positive", opts.top)
	}
	if opts.subdomain, err = fs.GetString("subdomain"); err != nil {
		return opts, err
	}
	if opts.json, err = fs.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = fs.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.runs, err = fs.GetBool("runs"); err != nil {
		return opts, err
	}
	if opts.output, err = fs.GetString("output"); err != nil {
		return opts, err
	}
	if opts.quiet, err = fs.GetBool("quiet"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runReport builds the summary and writes it in the requested format.
func runReport(ctx context.Context, opts reportOptions, stdout io.Writer) error {
	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := report.Build(ctx, db, opts.top, opts.subdomain)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	output := stdout
	if opts.output != "" {
		dir := filepath.Dir(opts.output)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case opts.markdown:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithRuns(opts.runs))
	}

	// A report written to a file is echoed as text on stdout.
	if opts.output != "" && !opts.quiet {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithRuns(opts.runs)))
	}

	if _, err := writer.Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showRuns controls whether the run history is printed.
	showRuns bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithRuns includes the run history in the output.
func WithRuns(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showRuns = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeWords(&sb, summary)
	w.writeSubdomains(&sb, summary)
	if w.showRuns {
		w.writeRuns(&sb, summary)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        CAMPUSCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Generated:       %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Discovered URLs: %d\n", s.DiscoveredURLs))
	sb.WriteString(fmt.Sprintf("Completed URLs:  %d\n", s.CompletedURLs))
	sb.WriteString(fmt.Sprintf("Unique pages:    %d\n", s.UniquePages))
	if s.Richest != nil {
		sb.WriteString(fmt.Sprintf("Longest page:    %s (%d words)\n", s.Richest.URL, s.Richest.WordCount))
	} else {
		sb.WriteString("Longest page:    none\n")
	}
	sb.WriteString("\n")
}

// writeWords writes the word ranking.
func (w *SimpleWriter) writeWords(sb *strings.Builder, s *Summary) {
	section(sb, fmt.Sprintf("TOP %d WORDS", len(s.TopWords)))

	if len(s.TopWords) == 0 {
		sb.WriteString("  No words recorded\n\n")
		return
	}
	for i, wc := range s.TopWords {
		sb.WriteString(fmt.Sprintf("  %3d. %-20s %d\n", i+1, wc.Word, wc.Count))
	}
	sb.WriteString("\n")
}

// writeSubdomains writes the per-host page counts.
func (w *SimpleWriter) writeSubdomains(sb *strings.Builder, s *Summary) {
	section(sb, "SUBDOMAINS OF "+strings.ToUpper(s.SubdomainSuffix))

	if len(s.Subdomains) == 0 {
		sb.WriteString("  No pages crawled\n\n")
		return
	}
	for _, dc := range s.Subdomains {
		sb.WriteString(fmt.Sprintf("  %s, %d\n", dc.Domain, dc.Pages))
	}
	sb.WriteString("\n")
}

// writeRuns writes the run history.
func (w *SimpleWriter) writeRuns(sb *strings.Builder, s *Summary) {
	section(sb, "RUNS")

	if len(s.Runs) == 0 {
		sb.WriteString("  No runs recorded\n\n")
		return
	}
	for _, run := range s.Runs {
		sb.WriteString(fmt.Sprintf("  %s  %s  %-10s  %d pages\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), runDuration(run), run.Pages))
	}
	sb.WriteString("\n")
}

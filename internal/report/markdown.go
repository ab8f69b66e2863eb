package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxChartSlices keeps the subdomain chart readable.
const maxChartSlices = 10

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeWords(md, s)
	w.writeSubdomains(md, s)
	w.writeRuns(md, s)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by campuscrawl at %s*", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	return len(md.String()), md.Build()
}

// writeHeader writes the totals table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	longest := "-"
	if s.Richest != nil {
		longest = s.Richest.URL + " (" + strconv.Itoa(s.Richest.WordCount) + " words)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Discovered URLs", strconv.Itoa(s.DiscoveredURLs)},
			{"Completed URLs", strconv.Itoa(s.CompletedURLs)},
			{"Unique Pages", strconv.Itoa(s.UniquePages)},
			{"Longest Page", longest},
		},
	})
	md.PlainText("")

	if s.CompletedURLs == 0 {
		md.Note("No URL has been processed yet.")
		md.PlainText("")
	}
}

// writeWords writes the word ranking table.
func (w *MarkdownWriter) writeWords(md *markdown.Markdown, s *Summary) {
	md.H2("Top Words")
	md.PlainText("")

	if len(s.TopWords) == 0 {
		md.PlainText("No words recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.TopWords))
	for i, wc := range s.TopWords {
		rows[i] = []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSubdomains writes per-host counts and a pie chart of the largest hosts.
func (w *MarkdownWriter) writeSubdomains(md *markdown.Markdown, s *Summary) {
	md.H2("Subdomains of " + s.SubdomainSuffix)
	md.PlainText("")

	if len(s.Subdomains) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Subdomains))
	for i, dc := range s.Subdomains {
		rows[i] = []string{dc.Domain, strconv.Itoa(dc.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Subdomain", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per subdomain"),
		piechart.WithShowData(true),
	)
	for i, dc := range s.Subdomains {
		if i == maxChartSlices {
			break
		}
		chart.LabelAndIntValue(dc.Domain, uint64(dc.Pages))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRuns writes the run history.
func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, s *Summary) {
	if len(s.Runs) == 0 {
		return
	}

	md.H2("Runs")
	md.PlainText("")

	rows := make([][]string, len(s.Runs))
	for i, run := range s.Runs {
		rows[i] = []string{
			"`" + run.ID + "`",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			runDuration(run),
			strconv.Itoa(run.Pages),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Duration", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

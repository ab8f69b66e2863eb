// Package report summarizes a crawl database.
//
// Build collects the figures from the store into a Summary. Writers render
// a Summary in different formats:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: Markdown with a mermaid chart, for sharing
//   - JSONWriter: JSON for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report

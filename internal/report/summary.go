package report

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/dedup"
)

// DefaultSubdomainSuffix is the host whose subdomains are broken down.
const DefaultSubdomainSuffix = "ics.uci.edu"

// DefaultTopWords is the length of the word ranking.
const DefaultTopWords = 50

// Store is the read side of the crawl database.
type Store interface {
	CountURLs(ctx context.Context) (database.URLCounts, error)
	CountDedupEntries(ctx context.Context, namespace string) (int, error)
	Richest(ctx context.Context) (*database.RichestPage, error)
	TopWords(ctx context.Context, n int) ([]database.WordCount, error)
	CompletedByDomain(ctx context.Context, suffix string) ([]database.DomainCount, error)
	ListRuns(ctx context.Context) ([]database.Run, error)
}

// Summary is the crawl report.
type Summary struct {
	GeneratedAt time.Time `json:"generatedAt"`

	// DiscoveredURLs is the number of URLs in the ledger.
	DiscoveredURLs int `json:"discoveredUrls"`

	// CompletedURLs is the number of URLs that were processed.
	CompletedURLs int `json:"completedUrls"`

	// UniquePages is the number of pages admitted by content dedup.
	UniquePages int `json:"uniquePages"`

	// Richest is the page with the most words, or nil.
	Richest *database.RichestPage `json:"richestPage,omitempty"`

	// TopWords is the word ranking, most frequent first.
	TopWords []database.WordCount `json:"topWords"`

	// SubdomainSuffix is the host Subdomains was computed for.
	SubdomainSuffix string `json:"subdomainSuffix"`

	// Subdomains holds completed URL counts per host, ordered by host.
	Subdomains []database.DomainCount `json:"subdomains"`

	// Runs lists crawl invocations, most recent first.
	Runs []database.Run `json:"runs"`
}

// Build reads a Summary from store.
func Build(ctx context.Context, store Store, topN int, subdomainSuffix string) (*Summary, error) {
	s := &Summary{
		GeneratedAt:     time.Now(),
		SubdomainSuffix: subdomainSuffix,
	}

	counts, err := store.CountURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count urls: %w", err)
	}
	s.DiscoveredURLs = counts.Total
	s.CompletedURLs = counts.Completed

	if s.UniquePages, err = store.CountDedupEntries(ctx, dedup.NamespacePages); err != nil {
		return nil, fmt.Errorf("failed to count unique pages: %w", err)
	}
	if s.Richest, err = store.Richest(ctx); err != nil {
		return nil, fmt.Errorf("failed to read richest page: %w", err)
	}
	if s.TopWords, err = store.TopWords(ctx, topN); err != nil {
		return nil, fmt.Errorf("failed to read top words: %w", err)
	}
	if s.Subdomains, err = store.CompletedByDomain(ctx, subdomainSuffix); err != nil {
		return nil, fmt.Errorf("failed to count subdomains: %w", err)
	}
	if s.Runs, err = store.ListRuns(ctx); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return s, nil
}

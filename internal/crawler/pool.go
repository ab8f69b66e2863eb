package crawler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/campuscrawl/internal/fetch"
	"github.com/nao1215/campuscrawl/internal/frontier"
	"github.com/nao1215/campuscrawl/internal/metrics"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

const (
	// DefaultWorkers is the number of workers when WithWorkers is not used.
	DefaultWorkers = 4

	// DefaultDelay is the politeness pause after each URL.
	DefaultDelay = 500 * time.Millisecond

	// DefaultIdlePoll is how long a worker without a host waits before asking again.
	DefaultIdlePoll = 6 * time.Second

	// DefaultMinWords is the word count a page needs to feed the word store.
	DefaultMinWords = 50
)

// Downloader fetches a single URL.
type Downloader interface {
	Download(ctx context.Context, url string) *fetch.Response
}

// Deduper answers whether a link or page was admitted before.
type Deduper interface {
	CheckAndRecord(ctx context.Context, key urlcanon.Key, fp *uint64, url string) (bool, error)
	CheckURL(ctx context.Context, key urlcanon.Key, url string) (bool, error)
	Lookup(key urlcanon.Key) (string, bool)
	Forget(ctx context.Context, key urlcanon.Key) error
}

// WordStore accumulates word frequencies and tracks the longest page.
type WordStore interface {
	AddWordCounts(ctx context.Context, freq map[string]int) error
	UpdateRichest(ctx context.Context, url string, wordCount int) (bool, error)
}

// Pool runs crawl workers against a shared frontier.
type Pool struct {
	frontier   *frontier.Frontier
	downloader Downloader
	words      WordStore
	links      Deduper
	pages      Deduper

	workers  int
	delay    time.Duration
	idlePoll time.Duration
	minWords int
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// counters, updated by every worker
	fetched    atomic.Int64
	unique     atomic.Int64
	duplicates atomic.Int64
	enqueued   atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithDelay sets the politeness pause after each URL.
func WithDelay(d time.Duration) Option {
	return func(p *Pool) {
		p.delay = d
	}
}

// WithIdlePoll sets the back-off of a worker that found no host.
func WithIdlePoll(d time.Duration) Option {
	return func(p *Pool) {
		p.idlePoll = d
	}
}

// WithMinWords sets the word count a page needs to feed the word store.
func WithMinWords(n int) Option {
	return func(p *Pool) {
		p.minWords = n
	}
}

// WithLogger sets the logger. Workers add a "worker" attribute to it.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// New creates a Pool. links is consulted for outgoing anchors and pages for
// fetched page content.
func New(f *frontier.Frontier, d Downloader, words WordStore, links, pages Deduper, opts ...Option) *Pool {
	p := &Pool{
		frontier:   f,
		downloader: d,
		words:      words,
		links:      links,
		pages:      pages,
		workers:    DefaultWorkers,
		delay:      DefaultDelay,
		idlePoll:   DefaultIdlePoll,
		minWords:   DefaultMinWords,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Result summarizes one Run.
type Result struct {
	// Fetched is the number of URLs downloaded and marked complete.
	Fetched int

	// UniquePages is the number of pages admitted by the page dedup cache.
	UniquePages int

	// DuplicatePages is the number of pages rejected as duplicates.
	DuplicatePages int

	// Enqueued is the number of new URLs added to the frontier.
	Enqueued int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Run starts the workers and blocks until the frontier is exhausted, a
// worker fails, or ctx is cancelled. The Result is valid in every case.
func (p *Pool) Run(ctx context.Context) (Result, error) {
	p.logger.Info("starting crawl",
		"workers", p.workers,
		"delay", p.delay,
		"idle_poll", p.idlePoll,
	)
	startTime := time.Now()

	for id := 0; id < p.workers; id++ {
		p.frontier.RegisterWorker(id)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for id := 0; id < p.workers; id++ {
		id := id
		g.Go(func() error {
			return p.work(ctx, id)
		})
	}

	err := g.Wait()

	result := Result{
		Fetched:        int(p.fetched.Load()),
		UniquePages:    int(p.unique.Load()),
		DuplicatePages: int(p.duplicates.Load()),
		Enqueued:       int(p.enqueued.Load()),
		Elapsed:        time.Since(startTime),
	}
	p.logger.Info("crawl finished",
		"fetched", result.Fetched,
		"unique_pages", result.UniquePages,
		"enqueued", result.Enqueued,
		"elapsed", result.Elapsed,
	)
	return result, err
}

// work is the loop of one worker.
func (p *Pool) work(ctx context.Context, id int) error {
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")

	var domain string
	release := func() {
		if domain != "" {
			p.frontier.ReleaseDomain(domain)
			domain = ""
		}
	}
	defer release()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if domain == "" {
			d, ok := p.frontier.GetDomain(id)
			if !ok {
				if p.frontier.IsGloballyIdle() {
					logger.Debug("frontier exhausted, worker stopping")
					return nil
				}
				if err := sleep(ctx, p.idlePoll); err != nil {
					return err
				}
				continue
			}
			domain = d
			logger.Debug("claimed domain", "domain", domain)
		}

		url, ok := p.frontier.GetNextURL(domain)
		if !ok {
			logger.Debug("domain drained", "domain", domain)
			release()
			continue
		}

		if err := p.visit(ctx, logger, url); err != nil {
			return err
		}
		p.reportFrontier()

		if err := sleep(ctx, p.delay); err != nil {
			return err
		}
	}
}

func (p *Pool) reportFrontier() {
	if p.metrics == nil {
		return
	}
	s := p.frontier.Stats()
	p.metrics.SetFrontier(s.PendingURLs, s.BusyWorkers)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package frontier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

const (
	// defaultExpectedURLs sizes the ledger bloom filter.
	defaultExpectedURLs = 1_000_000

	// bloomFalsePositiveRate only costs an extra ledger lookup when hit.
	bloomFalsePositiveRate = 0.001
)

// ErrInvalidSeed is returned when a seed URL is outside the crawl scope.
var ErrInvalidSeed = errors.New("seed URL is not crawlable")

// Store is the persistent URL ledger.
type Store interface {
	HasURL(ctx context.Context, key urlcanon.Key) (bool, error)
	InsertURL(ctx context.Context, key urlcanon.Key, url, domain string) (bool, error)
	MarkComplete(ctx context.Context, key urlcanon.Key, url, domain string) (bool, error)
	PendingURLs(ctx context.Context) ([]database.URLRecord, error)
	ForEachURLKey(ctx context.Context, fn func(urlcanon.Key)) error
	CountURLs(ctx context.Context) (database.URLCounts, error)
}

// Frontier is the shared pending-URL index.
type Frontier struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger

	expectedURLs uint

	// seen holds every ledger key. A negative answer skips the store lookup.
	seen *bloom.BloomFilter

	// queues maps a host to its pending URLs, newest last.
	queues map[string][]string

	// active lists hosts that have pending URLs and no owner, newest last.
	active []string

	// claimed holds hosts currently owned by a worker.
	claimed map[string]bool

	// workers maps a worker ID to whether it currently owns a host.
	workers map[int]bool
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		f.logger = logger
	}
}

// WithExpectedURLs sizes the in-memory ledger filter.
func WithExpectedURLs(n uint) Option {
	return func(f *Frontier) {
		f.expectedURLs = n
	}
}

// New creates a Frontier backed by store.
// Pending ledger rows that are still crawlable are restored. If the ledger
// is empty, seeds are added instead.
func New(ctx context.Context, store Store, seeds []string, opts ...Option) (*Frontier, error) {
	f := &Frontier{
		store:        store,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		expectedURLs: defaultExpectedURLs,
		queues:       make(map[string][]string),
		claimed:      make(map[string]bool),
		workers:      make(map[int]bool),
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, seed := range seeds {
		if !urlcanon.IsValid(seed) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, seed)
		}
	}

	counts, err := store.CountURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	capacity := f.expectedURLs
	if n := uint(counts.Total) * 2; n > capacity {
		capacity = n
	}
	f.seen = bloom.NewWithEstimates(capacity, bloomFalsePositiveRate)
	if err := store.ForEachURLKey(ctx, func(k urlcanon.Key) { f.seen.Add(k[:]) }); err != nil {
		return nil, fmt.Errorf("failed to load ledger keys: %w", err)
	}

	if counts.Total == 0 {
		for _, seed := range seeds {
			if _, err := f.AddURL(ctx, seed); err != nil {
				return nil, fmt.Errorf("failed to add seed %s: %w", seed, err)
			}
		}
		f.logger.Info("frontier seeded", "seeds", len(seeds))
		return f, nil
	}

	pending, err := store.PendingURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending urls: %w", err)
	}
	restored := 0
	for _, rec := range pending {
		if !urlcanon.IsValid(rec.URL) {
			f.logger.Debug("skipping pending url that is no longer crawlable", "url", rec.URL)
			continue
		}
		f.push(rec.Domain, rec.URL)
		restored++
	}
	f.logger.Info("frontier restored",
		"discovered", counts.Total,
		"completed", counts.Completed,
		"pending", restored,
	)
	return f, nil
}

// AddURL normalizes rawURL, records it in the ledger and queues it, unless
// it was discovered before. It reports whether the URL was new.
// The ledger round-trip runs without holding the frontier lock. Concurrent
// calls for one URL are settled by the store's insert-once semantics.
func (f *Frontier) AddURL(ctx context.Context, rawURL string) (bool, error) {
	url, err := urlcanon.Normalize(rawURL, "")
	if err != nil {
		return false, err
	}
	domain, err := urlcanon.Domain(url)
	if err != nil {
		return false, err
	}
	key := urlcanon.LedgerKey(url)

	f.mu.Lock()
	maybeKnown := f.seen.Test(key[:])
	f.mu.Unlock()

	if maybeKnown {
		known, err := f.store.HasURL(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to check ledger for %s: %w", url, err)
		}
		if known {
			return false, nil
		}
	}

	inserted, err := f.store.InsertURL(ctx, key, url, domain)
	if err != nil {
		return false, fmt.Errorf("failed to record %s: %w", url, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen.Add(key[:])
	if !inserted {
		return false, nil
	}
	f.push(domain, url)
	return true, nil
}

// push must be called with mu held or before the Frontier is shared.
func (f *Frontier) push(domain, url string) {
	wasEmpty := len(f.queues[domain]) == 0
	f.queues[domain] = append(f.queues[domain], url)
	if wasEmpty && !f.claimed[domain] {
		f.active = append(f.active, domain)
	}
}

// GetDomain hands the most recently activated host to workerID. The worker
// is marked busy on success and idle when no host is available.
func (f *Frontier) GetDomain(workerID int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.active) == 0 {
		f.workers[workerID] = false
		return "", false
	}

	last := len(f.active) - 1
	domain := f.active[last]
	f.active = f.active[:last]
	f.claimed[domain] = true
	f.workers[workerID] = true
	return domain, true
}

// GetNextURL pops the newest pending URL of domain.
func (f *Frontier) GetNextURL(domain string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := f.queues[domain]
	if len(q) == 0 {
		return "", false
	}
	last := len(q) - 1
	url := q[last]
	f.queues[domain] = q[:last]
	return url, true
}

// ReleaseDomain gives up ownership of domain. If URLs arrived for it since
// the owner last looked, it goes back to the active pool.
func (f *Frontier) ReleaseDomain(domain string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.claimed, domain)
	if len(f.queues[domain]) == 0 {
		delete(f.queues, domain)
		return
	}
	f.active = append(f.active, domain)
}

// MarkComplete records that url has been processed. A URL that was never
// discovered is logged as a ledger anomaly and still recorded.
func (f *Frontier) MarkComplete(ctx context.Context, url string) error {
	domain, err := urlcanon.Domain(url)
	if err != nil {
		return err
	}
	key := urlcanon.LedgerKey(url)

	found, err := f.store.MarkComplete(ctx, key, url, domain)
	if err != nil {
		return fmt.Errorf("failed to complete %s: %w", url, err)
	}
	if !found {
		f.logger.Error("completed url was never discovered", "url", url)
		f.mu.Lock()
		f.seen.Add(key[:])
		f.mu.Unlock()
	}
	return nil
}

// RegisterWorker adds an idle worker to the activity table.
func (f *Frontier) RegisterWorker(workerID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers[workerID] = false
}

// IsGloballyIdle reports whether no host is available and no worker owns one.
// Once true it stays true: only a busy worker can add URLs.
func (f *Frontier) IsGloballyIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.active) > 0 {
		return false
	}
	for _, busy := range f.workers {
		if busy {
			return false
		}
	}
	return true
}

// Stats is a point-in-time view of the frontier.
type Stats struct {
	PendingURLs    int
	ActiveDomains  int
	ClaimedDomains int
	BusyWorkers    int
}

// Stats returns current queue and worker counts.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Stats{
		ActiveDomains:  len(f.active),
		ClaimedDomains: len(f.claimed),
	}
	for _, q := range f.queues {
		s.PendingURLs += len(q)
	}
	for _, busy := range f.workers {
		if busy {
			s.BusyWorkers++
		}
	}
	return s
}

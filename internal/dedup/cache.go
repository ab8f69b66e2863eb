package dedup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/textstats"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// Namespaces used by the crawler.
const (
	// NamespaceLinks holds outgoing links admitted by identity key only.
	NamespaceLinks = "links"

	// NamespacePages holds fetched pages admitted by key and fingerprint.
	NamespacePages = "pages"
)

// Store persists dedup entries.
type Store interface {
	LoadDedupEntries(ctx context.Context, namespace string) ([]database.DedupEntry, error)
	InsertDedupEntry(ctx context.Context, namespace string, entry database.DedupEntry) error
	DeleteDedupEntry(ctx context.Context, namespace string, key urlcanon.Key) error
}

// Cache is a persistent exact and near-duplicate detector for one namespace.
type Cache struct {
	mu        sync.Mutex
	store     Store
	namespace string
	threshold int
	logger    *slog.Logger

	// keys maps identity keys to the URL that was admitted with them.
	keys map[urlcanon.Key]string

	// fingerprints holds every non-null admitted fingerprint.
	fingerprints []fingerprint
}

type fingerprint struct {
	key   urlcanon.Key
	value uint64
	url   string
}

// Option configures a Cache.
type Option func(*Cache)

// WithThreshold sets the near-duplicate Hamming distance threshold.
func WithThreshold(n int) Option {
	return func(c *Cache) {
		c.threshold = n
	}
}

// WithLogger sets the logger used for duplicate reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache for namespace and loads its persisted entries.
func New(ctx context.Context, store Store, namespace string, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:     store,
		namespace: namespace,
		threshold: textstats.DefaultDupThreshold,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:      make(map[urlcanon.Key]string),
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := store.LoadDedupEntries(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entries: %w", namespace, err)
	}
	for _, e := range entries {
		c.admit(e)
	}
	return c, nil
}

// CheckAndRecord reports whether an item with key and fingerprint fp was
// already seen. If not, the item is persisted and admitted. A nil fp only
// takes part in the exact key comparison. When persisting fails the item is
// not admitted and the error is returned.
func (c *Cache) CheckAndRecord(ctx context.Context, key urlcanon.Key, fp *uint64, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.keys[key]; ok {
		c.logger.Debug("exact duplicate", "namespace", c.namespace, "url", url, "matches", prev)
		return true, nil
	}

	if fp != nil {
		for _, f := range c.fingerprints {
			if textstats.IsNearDuplicate(*fp, f.value, c.threshold) {
				c.logger.Debug("near duplicate", "namespace", c.namespace, "url", url, "matches", f.url,
					"distance", textstats.HammingDistance(*fp, f.value))
				return true, nil
			}
		}
	}

	entry := database.DedupEntry{Key: key, URL: url, Fingerprint: fp}
	if err := c.store.InsertDedupEntry(ctx, c.namespace, entry); err != nil {
		return false, fmt.Errorf("failed to record %s: %w", url, err)
	}
	c.admit(entry)
	return false, nil
}

// CheckURL is CheckAndRecord without a fingerprint.
func (c *Cache) CheckURL(ctx context.Context, key urlcanon.Key, url string) (bool, error) {
	return c.CheckAndRecord(ctx, key, nil, url)
}

// Lookup returns the URL that key was admitted with.
func (c *Cache) Lookup(key urlcanon.Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.keys[key]
	return url, ok
}

// Forget withdraws the admission of key, in memory and in the store, so a
// later check reports it as new.
func (c *Cache) Forget(ctx context.Context, key urlcanon.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keys[key]; !ok {
		return nil
	}
	if err := c.store.DeleteDedupEntry(ctx, c.namespace, key); err != nil {
		return fmt.Errorf("failed to forget %s entry: %w", c.namespace, err)
	}
	delete(c.keys, key)
	c.fingerprints = slices.DeleteFunc(c.fingerprints, func(f fingerprint) bool {
		return f.key == key
	})
	return nil
}

// Len returns the number of admitted entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// admit must be called with mu held or before the Cache is shared.
func (c *Cache) admit(e database.DedupEntry) {
	c.keys[e.Key] = e.URL
	if e.Fingerprint != nil {
		c.fingerprints = append(c.fingerprints, fingerprint{key: e.Key, value: *e.Fingerprint, url: e.URL})
	}
}
